// Package columnar implements the columnar table backend: one typed array per
// attribute instead of one object per row.
//
// # Columns
//
// Each attribute kind maps to a column type:
//
//   - Integer: IntColumn, packed int64 values with a tracked range
//   - Float: FloatColumn, float64 values where NaN reads back as missing
//   - Date: TimestampColumn, seconds since the epoch as float64
//   - Text and MarkupText: StringColumn, with a null bitmap and dictionary
//     encoding once values repeat enough
//
// # Usage
//
// Importing the package registers the "columnar" backend with the table
// package, so callers normally go through table.New:
//
//	import _ "github.com/ajitpratap0/tabulate/pkg/columnar"
//
//	t, err := table.New(table.BackendColumnar, reg)
//
// The store is safe for concurrent readers and a single appender.
package columnar
