package cache

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/table"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// DefaultBatchSize is the number of rows per Arrow record batch
const DefaultBatchSize = 64 * 1024

const (
	metaStructure = "tabulate.structure"
	metaKind      = "tabulate.kind"
	metaMaxSize   = "tabulate.max_size"
)

// structure identifies a schema by attribute names and kinds only. Sizes are
// restored from the file, so they are not part of the match.
func structure(reg *schema.Registry) string {
	var b strings.Builder
	for _, d := range reg.Descriptors() {
		b.WriteString(d.Name)
		b.WriteByte(':')
		b.WriteString(d.Kind.String())
		b.WriteByte(';')
	}
	return b.String()
}

func arrowType(kind schema.AttributeKind) (arrow.DataType, error) {
	switch kind {
	case schema.KindInteger:
		return arrow.PrimitiveTypes.Int64, nil
	case schema.KindFloat:
		return arrow.PrimitiveTypes.Float64, nil
	case schema.KindDate:
		return arrow.FixedWidthTypes.Timestamp_s, nil
	case schema.KindText, schema.KindMarkupText:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeSchema, "no arrow type for kind %s", kind)
	}
}

// arrowSchema converts a registry into an Arrow schema carrying the kinds and
// sizes needed to rebuild it
func arrowSchema(reg *schema.Registry) (*arrow.Schema, error) {
	descs := reg.Descriptors()
	fields := make([]arrow.Field, 0, len(descs))
	for _, d := range descs {
		typ, err := arrowType(d.Kind)
		if err != nil {
			return nil, err
		}
		fields = append(fields, arrow.Field{
			Name:     d.Name,
			Type:     typ,
			Nullable: d.Kind == schema.KindText,
			Metadata: arrow.NewMetadata(
				[]string{metaKind, metaMaxSize},
				[]string{d.Kind.String(), strconv.Itoa(d.MaxSize)},
			),
		})
	}
	md := arrow.NewMetadata([]string{metaStructure}, []string{structure(reg)})
	return arrow.NewSchema(fields, &md), nil
}

// WriteArrow writes every row of tbl as an Arrow IPC file
func WriteArrow(w io.Writer, tbl table.Table, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	sc, err := arrowSchema(tbl.Schema())
	if err != nil {
		return err
	}
	cols, err := columnsOf(tbl)
	if err != nil {
		return err
	}

	pool := memory.NewGoAllocator()
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(sc), ipc.WithAllocator(pool))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create arrow writer")
	}

	rb := array.NewRecordBuilder(pool, sc)
	defer rb.Release()

	n := tbl.Len()
	for start := 0; start < n; start += batchSize {
		end := min(start+batchSize, n)
		for f, col := range cols {
			builder := rb.Field(f)
			for i := start; i < end; i++ {
				if err := appendArrowValue(builder, col.Value(i)); err != nil {
					return err
				}
			}
		}
		rec := rb.NewRecord()
		err := fw.Write(rec)
		rec.Release()
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write arrow batch")
		}
	}

	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close arrow writer")
	}
	return nil
}

// ReadArrow loads an Arrow IPC file written by WriteArrow into a new table of
// the named backend. The file must match reg by attribute names and kinds.
// When reg is not yet sealed its text sizes are replaced by the stored ones.
func ReadArrow(r io.Reader, reg *schema.Registry, backend table.Backend) (table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read arrow data")
	}

	fr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open arrow file")
	}
	defer fr.Close()

	sizes, err := checkArrowSchema(fr.Schema(), reg)
	if err != nil {
		return nil, err
	}
	if !reg.Sealed() {
		if err := reg.Finalize(sizes, 0); err != nil {
			return nil, err
		}
	}

	tbl, err := table.New(backend, reg)
	if err != nil {
		return nil, err
	}

	width := reg.Len()
	for b := 0; b < fr.NumRecords(); b++ {
		batch, err := fr.Record(b)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read arrow batch").WithDetail("batch", b)
		}
		for row := 0; row < int(batch.NumRows()); row++ {
			values := make([]record.Value, width)
			for c := 0; c < width; c++ {
				v, err := arrowValue(batch.Column(c), row, reg.Descriptor(c).Kind)
				if err != nil {
					return nil, err
				}
				values[c] = v
			}
			rec, err := record.NewTypedRecord(reg, values)
			if err != nil {
				return nil, err
			}
			if err := tbl.Append(rec); err != nil {
				return nil, err
			}
		}
	}
	return tbl, nil
}

// checkArrowSchema verifies the stored structure and returns the stored text sizes
func checkArrowSchema(sc *arrow.Schema, reg *schema.Registry) (map[string]int, error) {
	md := sc.Metadata()
	idx := md.FindKey(metaStructure)
	if idx < 0 {
		return nil, errors.New(errors.ErrorTypeSchema, "arrow file has no schema structure metadata")
	}
	if got, want := md.Values()[idx], structure(reg); got != want {
		return nil, errors.Newf(errors.ErrorTypeSchema, "cached schema does not match: have %q", got).
			WithDetail("expected", want)
	}

	sizes := make(map[string]int)
	for _, f := range sc.Fields() {
		d, _ := reg.Lookup(f.Name)
		if !d.Kind.IsText() {
			continue
		}
		i := f.Metadata.FindKey(metaMaxSize)
		if i < 0 {
			continue
		}
		n, err := strconv.Atoi(f.Metadata.Values()[i])
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSchema, "invalid stored size").WithDetail("attribute", f.Name)
		}
		sizes[f.Name] = n
	}
	return sizes, nil
}

// appendArrowValue appends one value to the builder of its column
func appendArrowValue(builder array.Builder, v record.Value) error {
	switch b := builder.(type) {
	case *array.Int64Builder:
		b.Append(v.Int)
	case *array.Float64Builder:
		b.Append(v.Float)
	case *array.TimestampBuilder:
		b.Append(arrow.Timestamp(int64(v.Float)))
	case *array.StringBuilder:
		if v.Null {
			b.AppendNull()
		} else {
			b.Append(v.Str)
		}
	default:
		return errors.Newf(errors.ErrorTypeInternal, "unsupported arrow builder %T", builder)
	}
	return nil
}

// arrowValue reads one cell back into a value of the declared kind
func arrowValue(col arrow.Array, row int, kind schema.AttributeKind) (record.Value, error) {
	if col.IsNull(row) {
		return record.Zero(kind), nil
	}
	switch c := col.(type) {
	case *array.Int64:
		return record.IntValue(c.Value(row)), nil
	case *array.Float64:
		return record.FloatValue(c.Value(row)), nil
	case *array.Timestamp:
		return record.DateValue(float64(c.Value(row))), nil
	case *array.String:
		if kind == schema.KindMarkupText {
			return record.MarkupValue(c.Value(row)), nil
		}
		return record.TextValue(c.Value(row)), nil
	default:
		return record.Value{}, errors.Newf(errors.ErrorTypeSchema, "unsupported arrow column %T", col)
	}
}

func columnsOf(tbl table.Table) ([]table.Column, error) {
	names := tbl.Schema().Names()
	cols := make([]table.Column, 0, len(names))
	for _, name := range names {
		col, err := tbl.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, nil
}
