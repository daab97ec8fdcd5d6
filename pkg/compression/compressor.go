// Package compression wraps readers and writers with a streaming codec. It
// backs transparent decompression of source dumps and optional compression of
// cache and export files.
//
// # Algorithm Selection
//
//   - S2/Snappy: fast, moderate compression
//   - LZ4: fastest, decent compression
//   - Zstd: best ratio at good speed
//   - Gzip/Deflate: widest compatibility
//
// # Usage
//
//	w, err := compression.NewWriter(f, compression.Zstd, compression.Default)
//	defer w.Close()
//
//	r, err := compression.NewReader(f, compression.FromPath(path))
//	defer r.Close()
package compression

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents framed snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

// Level represents compression level, trading speed for ratio
type Level int

const (
	// Fastest prioritizes speed over compression ratio
	Fastest Level = 1
	// Default balances speed and compression
	Default Level = 5
	// Better improves compression at cost of speed
	Better Level = 7
	// Best maximizes compression ratio
	Best Level = 9
)

// extensions maps file suffixes to algorithms
var extensions = map[string]Algorithm{
	".gz":   Gzip,
	".gzip": Gzip,
	".sz":   Snappy,
	".lz4":  LZ4,
	".zst":  Zstd,
	".zstd": Zstd,
	".s2":   S2,
	".zz":   Deflate,
}

var suffixes = map[Algorithm]string{
	Gzip:    ".gz",
	Snappy:  ".sz",
	LZ4:     ".lz4",
	Zstd:    ".zst",
	S2:      ".s2",
	Deflate: ".zz",
}

// Algorithms lists the supported algorithm names
func Algorithms() []Algorithm {
	return []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}
}

// Parse converts a configuration string to an Algorithm. Empty means None.
func Parse(s string) (Algorithm, error) {
	if s == "" {
		return None, nil
	}
	a := Algorithm(strings.ToLower(s))
	for _, known := range Algorithms() {
		if a == known {
			return a, nil
		}
	}
	return "", errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", s)
}

// FromPath infers the algorithm from a file extension, None when unknown
func FromPath(path string) Algorithm {
	if a, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return a
	}
	return None
}

// Extension returns the conventional file suffix for an algorithm
func (a Algorithm) Extension() string {
	return suffixes[a]
}

// NewWriter wraps w so that bytes written are compressed. Close flushes the
// codec but does not close w.
func NewWriter(w io.Writer, alg Algorithm, level Level) (io.WriteCloser, error) {
	switch alg {
	case None, "":
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriterLevel(w, mapGzipLevel(level))
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case LZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid lz4 level")
		}
		return lw, nil
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(mapZstdLevel(level)))
	case S2:
		return s2.NewWriter(w), nil
	case Deflate:
		return flate.NewWriter(w, mapDeflateLevel(level))
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", alg)
	}
}

// NewReader wraps r so that reads return decompressed bytes. Close releases
// the codec but does not close r.
func NewReader(r io.Reader, alg Algorithm) (io.ReadCloser, error) {
	switch alg {
	case None, "":
		return io.NopCloser(r), nil
	case Gzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "invalid gzip stream")
		}
		return gz, nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "invalid zstd stream")
		}
		return zstdReadCloser{zr}, nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case Deflate:
		return flate.NewReader(r), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", alg)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type zstdReadCloser struct{ *zstd.Decoder }

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}
