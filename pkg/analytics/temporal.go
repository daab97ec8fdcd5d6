package analytics

import (
	"time"

	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/table"
)

// Cutoff returns reference minus window as seconds since the epoch, the
// form StaleSince compares against. Sub-second precision is kept.
func Cutoff(reference time.Time, window time.Duration) float64 {
	t := reference.Add(-window)
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// StaleSince returns the rows of a date column whose value is strictly
// earlier than cutoff. Missing dates are skipped.
func StaleSince(col table.Column, cutoff float64) ([]int, error) {
	if err := requireKind(col, "stale since", schema.KindDate); err != nil {
		return nil, err
	}

	rows := make([]int, 0)
	n := col.Len()
	for i := 0; i < n; i++ {
		v := col.Value(i)
		if v.Missing() {
			continue
		}
		if v.Float < cutoff {
			rows = append(rows, i)
		}
	}
	return rows, nil
}
