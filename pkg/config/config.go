// Package config defines the single configuration structure of a tabulate run.
//
// The configuration is organized into sections:
//   - Schema: the attribute list of the entity
//   - Ingest: sizing, filtering and backend selection
//   - Report: query parameters and output format
//   - Cache: the optional Arrow snapshot of the loaded table
//   - Logging and Observability: zap, metrics textfile, tracing
//
// Example usage:
//
//	cfg := config.Default()
//	cfg.Source = "Users.xml.gz"
//	cfg.Ingest.Backend = "row"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"slices"
	"time"

	"github.com/ajitpratap0/tabulate/pkg/cache"
	_ "github.com/ajitpratap0/tabulate/pkg/columnar"
	"github.com/ajitpratap0/tabulate/pkg/compression"
	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/logger"
	"github.com/ajitpratap0/tabulate/pkg/report"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/table"
)

// dateLayout is the format of reference dates in configuration files
const dateLayout = "2006-01-02"

// Config is the configuration of one run. Load it from YAML, then overlay
// environment variables and flags with Overlay.
type Config struct {
	// Source is the path of the XML dump; .gz, .zst and the other
	// compression suffixes are decompressed transparently
	Source string `yaml:"source" json:"source"`

	// Schema lists the attributes in order. Empty means the users schema.
	Schema []AttributeConfig `yaml:"schema,omitempty" json:"schema,omitempty"`

	Ingest        IngestConfig        `yaml:"ingest" json:"ingest"`
	Report        ReportConfig        `yaml:"report" json:"report"`
	Cache         CacheConfig         `yaml:"cache" json:"cache"`
	Logging       logger.Config       `yaml:"logging" json:"logging"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// AttributeConfig declares one attribute
type AttributeConfig struct {
	Name    string `yaml:"name" json:"name"`
	Kind    string `yaml:"kind" json:"kind"`
	MaxSize int    `yaml:"max_size,omitempty" json:"max_size,omitempty"`
}

// IngestConfig controls how records become rows
type IngestConfig struct {
	// Backend selects the table implementation (columnar, row)
	Backend string `yaml:"backend" json:"backend"`
	// EnforceSize rejects text values longer than their attribute's size
	EnforceSize bool `yaml:"enforce_size" json:"enforce_size"`
	// DynamicSizing runs a scan first and sizes text attributes from the data
	DynamicSizing bool `yaml:"dynamic_sizing" json:"dynamic_sizing"`
	// Padding is added to every scanned size
	Padding int `yaml:"padding" json:"padding"`
	// SkipCount drops this many leading records
	SkipCount int `yaml:"skip_count" json:"skip_count"`
	// Limit stops after this many rows are ingested (0 = unlimited)
	Limit int `yaml:"limit" json:"limit"`
	// ProgressEvery logs progress every n records read (0 = never)
	ProgressEvery int `yaml:"progress_every" json:"progress_every"`
	// Mmap maps the source file into memory once for both passes
	Mmap bool `yaml:"mmap" json:"mmap"`
}

// ReportConfig controls the query battery and its output
type ReportConfig struct {
	// Format is text or json
	Format string `yaml:"format" json:"format"`
	// DisplayLimit caps listed rows per section; negative lists all
	DisplayLimit int `yaml:"display_limit" json:"display_limit"`
	// TopLocations is n for the location ranking
	TopLocations int `yaml:"top_locations" json:"top_locations"`
	// StaleDays is the inactivity window of the staleness queries
	StaleDays int `yaml:"stale_days" json:"stale_days"`
	// HistoricalReference is the fixed date of the second staleness query
	HistoricalReference string `yaml:"historical_reference" json:"historical_reference"`
	// Columns renames the attributes the queries read
	Columns report.Columns `yaml:"columns" json:"columns"`
}

// CacheConfig controls the Arrow snapshot of the loaded table
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	// Compression is none, gzip, snappy, lz4, zstd, s2 or deflate
	Compression string `yaml:"compression" json:"compression"`
	Level       int    `yaml:"level" json:"level"`
}

// ObservabilityConfig contains metrics and tracing settings
type ObservabilityConfig struct {
	// MetricsFile receives a Prometheus textfile at the end of a run
	MetricsFile string `yaml:"metrics_file" json:"metrics_file"`
	// Trace prints pipeline spans to stderr
	Trace bool `yaml:"trace" json:"trace"`
}

// Default returns the configuration of the users report
func Default() *Config {
	return &Config{
		Ingest: IngestConfig{
			Backend:       string(table.BackendColumnar),
			EnforceSize:   true,
			DynamicSizing: true,
			Padding:       schema.DefaultPadding,
			ProgressEvery: 100000,
		},
		Report: ReportConfig{
			Format:              "text",
			DisplayLimit:        10,
			TopLocations:        20,
			StaleDays:           180,
			HistoricalReference: "2014-06-01",
			Columns:             report.UserColumns(),
		},
		Cache: CacheConfig{
			Path:        "users.arrow",
			Compression: string(compression.Zstd),
			Level:       int(compression.Default),
		},
		Logging: logger.DefaultConfig(),
	}
}

// Validate checks values that would otherwise fail late in a run
func (c *Config) Validate() error {
	if c.Source == "" && !c.Cache.Enabled {
		return errors.New(errors.ErrorTypeConfig, "source is required")
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	if !slices.Contains(table.Backends(), c.Ingest.Backend) {
		return errors.Newf(errors.ErrorTypeConfig, "unknown backend %q", c.Ingest.Backend).
			WithDetail("available", table.Backends())
	}
	if c.Ingest.Padding < 0 {
		return errors.New(errors.ErrorTypeConfig, "padding cannot be negative")
	}
	if c.Ingest.SkipCount < 0 {
		return errors.New(errors.ErrorTypeConfig, "skip_count cannot be negative")
	}
	if c.Ingest.Limit < 0 {
		return errors.New(errors.ErrorTypeConfig, "limit cannot be negative")
	}
	if c.Report.Format != "text" && c.Report.Format != "json" {
		return errors.Newf(errors.ErrorTypeConfig, "unknown report format %q", c.Report.Format)
	}
	if c.Report.TopLocations <= 0 {
		return errors.New(errors.ErrorTypeConfig, "top_locations must be positive")
	}
	if c.Report.StaleDays <= 0 {
		return errors.New(errors.ErrorTypeConfig, "stale_days must be positive")
	}
	if _, err := c.historicalReference(); err != nil {
		return err
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return errors.New(errors.ErrorTypeConfig, "cache path is required when the cache is enabled")
	}
	if _, err := compression.Parse(c.Cache.Compression); err != nil {
		return err
	}
	return nil
}

// Registry builds a fresh schema registry from the attribute list
func (c *Config) Registry() (*schema.Registry, error) {
	if len(c.Schema) == 0 {
		return schema.DefaultUserSchema(), nil
	}
	descs := make([]schema.AttributeDescriptor, 0, len(c.Schema))
	for _, a := range c.Schema {
		kind, err := schema.ParseKind(a.Kind)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid schema").WithDetail("attribute", a.Name)
		}
		descs = append(descs, schema.AttributeDescriptor{Name: a.Name, Kind: kind, MaxSize: a.MaxSize})
	}
	return schema.NewRegistry(descs...)
}

// ReportOptions converts the report section. now is the reference time of
// the first staleness query.
func (c *Config) ReportOptions(now time.Time) (report.Options, error) {
	ref, err := c.historicalReference()
	if err != nil {
		return report.Options{}, err
	}
	return report.Options{
		DisplayLimit:        c.Report.DisplayLimit,
		TopLocations:        c.Report.TopLocations,
		StaleWindow:         time.Duration(c.Report.StaleDays) * 24 * time.Hour,
		Now:                 now,
		HistoricalReference: ref,
		Columns:             c.Report.Columns,
	}, nil
}

// CacheStore returns the configured cache
func (c *Config) CacheStore() (*cache.Cache, error) {
	alg, err := compression.Parse(c.Cache.Compression)
	if err != nil {
		return nil, err
	}
	return cache.New(c.Cache.Path, alg, compression.Level(c.Cache.Level)), nil
}

func (c *Config) historicalReference() (time.Time, error) {
	t, err := time.Parse(dateLayout, c.Report.HistoricalReference)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrorTypeConfig, "historical_reference must be YYYY-MM-DD")
	}
	return t.UTC(), nil
}
