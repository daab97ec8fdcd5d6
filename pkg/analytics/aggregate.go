package analytics

import (
	"math"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/table"
)

var nan = math.NaN()

// Extreme is the result of ExtremeWithTies: the winning value and every row
// holding it, in ascending row order.
type Extreme struct {
	Value record.Value
	Rows  []int
}

// Count returns the number of tied rows
func (e Extreme) Count() int { return len(e.Rows) }

// ExtremeWithTies finds the largest or smallest value in a numeric or date
// column and returns all rows that hold it. Missing entries never win. A
// column with no present values is a query error.
func ExtremeWithTies(col table.Column, dir Direction) (Extreme, error) {
	if err := requireNumeric(col, "extreme"); err != nil {
		return Extreme{}, err
	}

	var best Extreme
	found := false

	n := col.Len()
	for i := 0; i < n; i++ {
		v := col.Value(i)
		if v.Missing() {
			continue
		}
		if !found {
			best = Extreme{Value: v, Rows: []int{i}}
			found = true
			continue
		}

		c := v.Compare(best.Value)
		if dir == Min {
			c = -c
		}
		switch {
		case c > 0:
			best.Value = v
			best.Rows = append(best.Rows[:0], i)
		case c == 0:
			best.Rows = append(best.Rows, i)
		}
	}

	if !found {
		return Extreme{}, errors.Newf(errors.ErrorTypeQuery, "%s of %s: column has no values", dir, col.Name()).
			WithDetail("column", col.Name())
	}
	return best, nil
}

// MeanWithMissingSubstitution averages a numeric column with every missing
// entry counted as 0. Missing rows stay in the denominator, so [10, missing,
// 20] averages to 10. An empty column averages to 0.
func MeanWithMissingSubstitution(col table.Column) (float64, error) {
	values, err := Float64s(col)
	if err != nil {
		return 0, err
	}
	return meanSubstituted(values), nil
}

func meanSubstituted(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	return sum / float64(len(values))
}

// Bound is an interval over numeric values. A nil side is unbounded.
type Bound struct {
	Label       string
	Lo, Hi      *float64
	InclusiveLo bool
	InclusiveHi bool
}

// Contains reports whether x falls inside the bound. NaN is never inside.
func (b Bound) Contains(x float64) bool {
	if math.IsNaN(x) {
		return false
	}
	if b.Lo != nil {
		if x < *b.Lo || (x == *b.Lo && !b.InclusiveLo) {
			return false
		}
	}
	if b.Hi != nil {
		if x > *b.Hi || (x == *b.Hi && !b.InclusiveHi) {
			return false
		}
	}
	return true
}

// Below returns the bound x < hi
func Below(label string, hi float64) Bound {
	return Bound{Label: label, Hi: &hi}
}

// Above returns the bound x > lo
func Above(label string, lo float64) Bound {
	return Bound{Label: label, Lo: &lo}
}

// Between returns the closed bound lo <= x <= hi
func Between(label string, lo, hi float64) Bound {
	return Bound{Label: label, Lo: &lo, Hi: &hi, InclusiveLo: true, InclusiveHi: true}
}

// AgeBuckets returns the fixed age ranges of the report. The buckets are not
// a partition: [18,25] and [25,35] both hold 25, and nothing holds values
// strictly between 35 and 36.
func AgeBuckets() []Bound {
	return []Bound{
		Below("below 18", 18),
		Between("from 18-25", 18, 25),
		Between("from 25-35", 25, 35),
		Between("from 36-46", 36, 46),
		Above("above 46", 46),
	}
}

// ThresholdBucket returns the rows whose value lies within bound
func ThresholdBucket(col table.Column, bound Bound) ([]int, error) {
	values, err := Float64s(col)
	if err != nil {
		return nil, err
	}

	rows := make([]int, 0)
	for i, v := range values {
		if bound.Contains(v) {
			rows = append(rows, i)
		}
	}
	return rows, nil
}

// Summary holds descriptive statistics for a numeric column
type Summary struct {
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
}

// Describe computes count, range and mean over the present values of a
// numeric column. Unlike MeanWithMissingSubstitution, missing values are
// excluded from Mean.
func Describe(col table.Column) (Summary, error) {
	values, err := Float64s(col)
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	var sum float64
	for _, v := range values {
		if math.IsNaN(v) {
			s.Missing++
			continue
		}
		if s.Count == 0 || v < s.Min {
			s.Min = v
		}
		if s.Count == 0 || v > s.Max {
			s.Max = v
		}
		sum += v
		s.Count++
	}
	if s.Count > 0 {
		s.Mean = sum / float64(s.Count)
	}
	return s, nil
}
