// Package mmap maps whole files read-only into memory. A mapped dump can be
// decoded several times, once per pass, without reading it from disk again.
package mmap

import (
	stderrors "errors"
	"os"

	"github.com/ajitpratap0/tabulate/pkg/errors"
)

// Reader is a read-only mapping of one file
type Reader struct {
	file *os.File
	data []byte
}

// Open maps the named file. An empty file yields an empty mapping.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(err, errors.ErrorTypeSourceNotFound, "input document not found").
				WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file").WithDetail("path", path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat file").WithDetail("path", path)
	}

	r := &Reader{file: file}
	if stat.Size() == 0 {
		return r, nil
	}

	data, err := mapFile(file, int(stat.Size()))
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to map file").WithDetail("path", path)
	}
	r.data = data
	return r, nil
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (r *Reader) Bytes() []byte { return r.data }

// Len returns the file size in bytes
func (r *Reader) Len() int { return len(r.data) }

// Close unmaps the file and closes it
func (r *Reader) Close() error {
	var err error
	if r.data != nil {
		err = unmapFile(r.data)
		r.data = nil
	}
	if r.file != nil {
		if closeErr := r.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		r.file = nil
	}
	return err
}
