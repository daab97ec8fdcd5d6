package analytics

import (
	"sort"

	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/table"
)

// Frequency is one group of equal values
type Frequency struct {
	Value record.Value
	Count int
	First int // row where the value first appears
}

type groupKey struct {
	i int64
	f float64
	s string
}

func keyOf(v record.Value) groupKey {
	switch v.Kind {
	case schema.KindInteger:
		return groupKey{i: v.Int}
	case schema.KindFloat, schema.KindDate:
		return groupKey{f: v.Float}
	default:
		return groupKey{s: v.Str}
	}
}

// TopNByFrequency groups rows by exact value equality and returns the n most
// frequent groups by descending count. Equal counts keep first-seen order,
// so the result is deterministic for a given table. Missing values are not
// counted. n <= 0 returns every group.
func TopNByFrequency(col table.Column, n int) ([]Frequency, error) {
	index := make(map[groupKey]int)
	groups := make([]Frequency, 0)

	rows := col.Len()
	for i := 0; i < rows; i++ {
		v := col.Value(i)
		if v.Missing() {
			continue
		}
		k := keyOf(v)
		if g, ok := index[k]; ok {
			groups[g].Count++
			continue
		}
		index[k] = len(groups)
		groups = append(groups, Frequency{Value: v, Count: 1, First: i})
	}

	// groups are in first-seen order, so a stable sort keeps that as the tie-break
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Count > groups[b].Count
	})

	if n > 0 && n < len(groups) {
		groups = groups[:n]
	}
	return groups, nil
}
