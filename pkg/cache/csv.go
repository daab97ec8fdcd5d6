package cache

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/table"
)

// csvTimeLayout formats dates in exported CSV files
const csvTimeLayout = "2006-01-02T15:04:05Z"

// WriteCSV writes a header of attribute names followed by one line per row.
// Null text is written as an empty field.
func WriteCSV(w io.Writer, tbl table.Table) error {
	cols, err := columnsOf(tbl)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(tbl.Schema().Names()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write csv header")
	}

	line := make([]string, len(cols))
	for i := 0; i < tbl.Len(); i++ {
		for c, col := range cols {
			line[c] = csvField(col.Value(i))
		}
		if err := cw.Write(line); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write csv row").WithDetail("row", i)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush csv")
	}
	return nil
}

func csvField(v record.Value) string {
	switch v.Kind {
	case schema.KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case schema.KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case schema.KindDate:
		return v.Time().Format(csvTimeLayout)
	default:
		return v.Str
	}
}
