package cache

import (
	"io"

	"github.com/ajitpratap0/tabulate/pkg/compression"
	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/table"
	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
)

// avroRecordName names the record type in exported Avro schemas
const avroRecordName = "TabulateRow"

// avroSchema builds the Avro record schema of a registry. Dates are exported
// as long seconds since the epoch and only Text attributes are nullable.
func avroSchema(reg *schema.Registry) (string, error) {
	descs := reg.Descriptors()
	fields := make([]map[string]interface{}, 0, len(descs))
	for _, d := range descs {
		field := map[string]interface{}{"name": d.Name}
		switch d.Kind {
		case schema.KindInteger, schema.KindDate:
			field["type"] = "long"
		case schema.KindFloat:
			field["type"] = "double"
		case schema.KindMarkupText:
			field["type"] = "string"
		case schema.KindText:
			field["type"] = []interface{}{"null", "string"}
			field["default"] = nil
		default:
			return "", errors.Newf(errors.ErrorTypeSchema, "no avro type for kind %s", d.Kind)
		}
		fields = append(fields, field)
	}

	b, err := json.Marshal(map[string]interface{}{
		"type":   "record",
		"name":   avroRecordName,
		"fields": fields,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode avro schema")
	}
	return string(b), nil
}

// avroCompression maps an algorithm to an OCF block codec name
func avroCompression(alg compression.Algorithm) (string, error) {
	switch alg {
	case compression.None, "":
		return goavro.CompressionNullLabel, nil
	case compression.Deflate:
		return goavro.CompressionDeflateLabel, nil
	case compression.Snappy:
		return goavro.CompressionSnappyLabel, nil
	case compression.Zstd:
		return goavro.CompressionZstandardLabel, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "avro does not support %s block compression", alg)
	}
}

// WriteAvro writes every row of tbl as an Avro object container file.
// Compression is applied per block by the container, not around the stream.
func WriteAvro(w io.Writer, tbl table.Table, alg compression.Algorithm, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	sc, err := avroSchema(tbl.Schema())
	if err != nil {
		return err
	}
	codec, err := goavro.NewCodec(sc)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSchema, "failed to create avro codec")
	}
	name, err := avroCompression(alg)
	if err != nil {
		return err
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: name,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create avro writer")
	}

	cols, err := columnsOf(tbl)
	if err != nil {
		return err
	}

	n := tbl.Len()
	batch := make([]interface{}, 0, min(batchSize, n))
	for i := 0; i < n; i++ {
		native := make(map[string]interface{}, len(cols))
		for _, col := range cols {
			native[col.Name()] = avroNative(col.Value(i))
		}
		batch = append(batch, native)

		if len(batch) == batchSize || i == n-1 {
			if err := ocf.Append(batch); err != nil {
				return errors.Wrap(err, errors.ErrorTypeFile, "failed to append avro block")
			}
			batch = batch[:0]
		}
	}
	return nil
}

func avroNative(v record.Value) interface{} {
	switch v.Kind {
	case schema.KindInteger:
		return v.Int
	case schema.KindFloat:
		return v.Float
	case schema.KindDate:
		return int64(v.Float)
	case schema.KindText:
		if v.Null {
			return goavro.Union("null", nil)
		}
		return goavro.Union("string", v.Str)
	default:
		return v.Str
	}
}
