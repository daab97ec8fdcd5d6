// Package analytics implements the fixed set of descriptive queries run over
// a loaded table. Every function is read-only: it takes a column view and
// returns row indices, counts or scalars without touching the table.
package analytics

import (
	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/table"
)

// Direction selects the extreme to look for
type Direction int

const (
	// Max finds the largest value
	Max Direction = iota
	// Min finds the smallest value
	Min
)

func (d Direction) String() string {
	if d == Min {
		return "min"
	}
	return "max"
}

func requireNumeric(col table.Column, query string) error {
	switch col.Kind() {
	case schema.KindInteger, schema.KindFloat, schema.KindDate:
		return nil
	}
	return errors.Newf(errors.ErrorTypeQuery, "%s needs a numeric or date column, %s is %s",
		query, col.Name(), col.Kind()).
		WithDetail("column", col.Name())
}

func requireKind(col table.Column, query string, kinds ...schema.AttributeKind) error {
	for _, k := range kinds {
		if col.Kind() == k {
			return nil
		}
	}
	return errors.Newf(errors.ErrorTypeQuery, "%s cannot run on %s column %s",
		query, col.Kind(), col.Name()).
		WithDetail("column", col.Name())
}

// Float64s returns the numeric view of a numeric or date column. Missing
// entries come back as NaN.
func Float64s(col table.Column) ([]float64, error) {
	if err := requireNumeric(col, "numeric view"); err != nil {
		return nil, err
	}

	n := col.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := col.Value(i)
		if v.Missing() {
			out[i] = nan
			continue
		}
		out[i], _ = v.Number()
	}
	return out, nil
}
