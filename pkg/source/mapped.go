package source

import (
	"bytes"
	"context"
	"io"

	"github.com/ajitpratap0/tabulate/pkg/compression"
	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/mmap"
	"github.com/ajitpratap0/tabulate/pkg/record"
)

// MappedSource reads records from a memory-mapped file. The mapping is
// created on the first Each and shared by later passes until Close.
type MappedSource struct {
	path   string
	reader *mmap.Reader
}

// NewMappedSource creates a source over a memory-mapped file
func NewMappedSource(path string) *MappedSource {
	return &MappedSource{path: path}
}

// Name returns the file path
func (s *MappedSource) Name() string { return s.path }

// Each decodes the mapped file and calls fn for every record
func (s *MappedSource) Each(ctx context.Context, fn func(record.RawRecord) error) error {
	if s.reader == nil {
		r, err := mmap.Open(s.path)
		if err != nil {
			return err
		}
		s.reader = r
	}

	var in io.Reader = bytes.NewReader(s.reader.Bytes())
	if alg := compression.FromPath(s.path); alg != compression.None {
		zr, err := compression.NewReader(in, alg)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeMalformedSource, "invalid compressed input").
				WithDetail("path", s.path)
		}
		defer zr.Close()
		in = zr
	}
	return decode(ctx, s.path, in, fn)
}

// Close releases the mapping
func (s *MappedSource) Close() error {
	if s.reader == nil {
		return nil
	}
	err := s.reader.Close()
	s.reader = nil
	return err
}
