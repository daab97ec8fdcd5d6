// Package source reads entity records from an XML dump in which every direct
// child of the root element is one entity and its attributes are the entity's
// raw attribute values:
//
//	<users>
//	    <row Id="-1" Reputation="1" DisplayName="Community" ... />
//	    <row Id="2" Reputation="101" DisplayName="Geoff Dalgas" ... />
//	</users>
//
// Compressed files (.gz, .zst, .lz4, .s2, ...) are decompressed transparently.
package source

import (
	"bytes"
	"context"
	"encoding/xml"
	stderrors "errors"
	"io"
	"os"

	"github.com/ajitpratap0/tabulate/pkg/compression"
	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/pool"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"golang.org/x/net/html/charset"
)

// ErrStop may be returned by an Each callback to end iteration early without error
var ErrStop = stderrors.New("stop iteration")

// ctxCheckInterval is how many records are decoded between context checks
const ctxCheckInterval = 1024

// rawRecords recycles attribute maps between records
var rawRecords = pool.New(
	func() record.RawRecord { return make(record.RawRecord, 16) },
	func(r record.RawRecord) { clear(r) },
)

// Source yields raw records in document order. Each call starts from the
// beginning, so a source can serve both the size scan and the ingestion pass.
// The map passed to fn is reused for the next record; fn must copy it to keep it.
type Source interface {
	Each(ctx context.Context, fn func(record.RawRecord) error) error
	Name() string
}

// FileSource reads records from a file on disk
type FileSource struct {
	path string
}

// NewFileSource creates a source for the XML file at path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the file path
func (s *FileSource) Name() string { return s.path }

// Each decodes the file and calls fn for every record
func (s *FileSource) Each(ctx context.Context, fn func(record.RawRecord) error) error {
	f, err := os.Open(s.path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return errors.Wrap(err, errors.ErrorTypeSourceNotFound, "input document not found").
				WithDetail("path", s.path)
		}
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to open input document").
			WithDetail("path", s.path)
	}
	defer f.Close()

	r, err := compression.NewReader(f, compression.FromPath(s.path))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeMalformedSource, "invalid compressed input").
			WithDetail("path", s.path)
	}
	defer r.Close()

	return decode(ctx, s.path, r, fn)
}

// BytesSource reads records from an in-memory document
type BytesSource struct {
	name string
	data []byte
}

// NewBytesSource creates a source over data
func NewBytesSource(name string, data []byte) *BytesSource {
	return &BytesSource{name: name, data: data}
}

// Name returns the source name
func (s *BytesSource) Name() string { return s.name }

// Each decodes the document and calls fn for every record
func (s *BytesSource) Each(ctx context.Context, fn func(record.RawRecord) error) error {
	return decode(ctx, s.name, bytes.NewReader(s.data), fn)
}

func decode(ctx context.Context, name string, r io.Reader, fn func(record.RawRecord) error) error {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	depth := 0
	sawRoot := false
	count := 0

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return malformed(name, decoder, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if sawRoot {
					return errors.Newf(errors.ErrorTypeMalformedSource, "unexpected element %s after document end", t.Name.Local).
						WithDetail("source", name)
				}
				sawRoot = true
				depth++
				continue
			}

			// record elements carry no meaningful content
			if err := decoder.Skip(); err != nil {
				return malformed(name, decoder, err)
			}

			count++
			if count%ctxCheckInterval == 1 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			raw := rawRecords.Get()
			for _, a := range t.Attr {
				raw[a.Name.Local] = a.Value
			}
			err := fn(raw)
			rawRecords.Put(raw)
			if err != nil {
				if stderrors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
		case xml.EndElement:
			depth--
		}
	}

	if !sawRoot {
		return errors.New(errors.ErrorTypeMalformedSource, "document has no root element").
			WithDetail("source", name)
	}
	return nil
}

func malformed(name string, decoder *xml.Decoder, err error) error {
	line, col := decoder.InputPos()
	return errors.Wrap(err, errors.ErrorTypeMalformedSource, "failed to decode document").
		WithDetail("source", name).
		WithDetail("line", line).
		WithDetail("column", col)
}
