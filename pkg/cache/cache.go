// Package cache persists loaded tables so later runs can skip parsing, and
// exports them to interchange formats.
//
// The cache file is an Arrow IPC file whose schema metadata records the
// attribute kinds and text sizes it was written under. Loading it into a
// registry with different names or kinds fails with a schema error.
package cache

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/tabulate/pkg/compression"
	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/logger"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/table"
	"go.uber.org/zap"
)

// Format is an export file format
type Format string

const (
	// FormatArrow is an Arrow IPC file
	FormatArrow Format = "arrow"
	// FormatAvro is an Avro object container file
	FormatAvro Format = "avro"
	// FormatCSV is comma separated text with a header line
	FormatCSV Format = "csv"
)

// Formats lists the supported export formats
func Formats() []Format {
	return []Format{FormatArrow, FormatAvro, FormatCSV}
}

// ParseFormat converts a configuration string to a Format
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", errors.Newf(errors.ErrorTypeConfig, "unknown export format %q", s)
}

// ExportOptions control Export
type ExportOptions struct {
	Compression compression.Algorithm
	Level       compression.Level
	BatchSize   int
}

// Export writes tbl to w in the given format. Arrow and CSV streams are
// wrapped in the compression codec; Avro compresses its own blocks.
func Export(w io.Writer, tbl table.Table, format Format, opts ExportOptions) error {
	if format == FormatAvro {
		return WriteAvro(w, tbl, opts.Compression, opts.BatchSize)
	}

	cw, err := compression.NewWriter(w, opts.Compression, opts.Level)
	if err != nil {
		return err
	}

	switch format {
	case FormatArrow:
		err = WriteArrow(cw, tbl, opts.BatchSize)
	case FormatCSV:
		err = WriteCSV(cw, tbl)
	default:
		err = errors.Newf(errors.ErrorTypeConfig, "unknown export format %q", format)
	}
	if err != nil {
		cw.Close()
		return err
	}
	if err := cw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush compressed output")
	}
	return nil
}

// ExportFile writes tbl to path atomically
func ExportFile(path string, tbl table.Table, format Format, opts ExportOptions) error {
	return writeAtomic(path, func(w io.Writer) error {
		return Export(w, tbl, format, opts)
	})
}

// Cache is a table snapshot on disk
type Cache struct {
	path   string
	alg    compression.Algorithm
	level  compression.Level
	logger *zap.Logger
}

// New creates a cache at path. The algorithm compresses the whole file.
func New(path string, alg compression.Algorithm, level compression.Level) *Cache {
	return &Cache{
		path:   path,
		alg:    alg,
		level:  level,
		logger: logger.With(zap.String("component", "table_cache"), zap.String("path", path)),
	}
}

// Path returns the cache file location
func (c *Cache) Path() string { return c.path }

// Exists reports whether a cache file is present
func (c *Cache) Exists() bool {
	info, err := os.Stat(c.path)
	return err == nil && info.Mode().IsRegular()
}

// Save writes tbl to the cache file, replacing any previous snapshot only
// once the new one is complete
func (c *Cache) Save(tbl table.Table) error {
	err := ExportFile(c.path, tbl, FormatArrow, ExportOptions{Compression: c.alg, Level: c.level})
	if err != nil {
		return err
	}
	c.logger.Info("table cached",
		zap.Int("rows", tbl.Len()),
		zap.String("compression", string(c.alg)))
	return nil
}

// Load reads the snapshot into a new table of the named backend
func (c *Cache) Load(reg *schema.Registry, backend table.Backend) (table.Table, error) {
	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeSourceNotFound, "cache file not found").
				WithDetail("path", c.path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open cache file")
	}
	defer f.Close()

	r, err := compression.NewReader(f, c.alg)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	tbl, err := ReadArrow(r, reg, backend)
	if err != nil {
		return nil, err
	}
	c.logger.Info("table loaded from cache", zap.Int("rows", tbl.Len()))
	return tbl, nil
}

// writeAtomic writes to a temporary file next to path and renames it into place
func writeAtomic(path string, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create temporary file")
	}
	defer os.Remove(tmp.Name())

	if err := fn(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close temporary file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to move file into place")
	}
	return nil
}
