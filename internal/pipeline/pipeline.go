// Package pipeline orchestrates one load of an XML dump into a table.
//
// # Phases
//
//   - Cache: when a cache snapshot exists the table is loaded from it and
//     parsing is skipped entirely
//   - Scan: with dynamic sizing, one pass measures every text attribute and
//     the registry is finalized to observed length plus padding
//   - Ingest: the registry is sealed and a second pass parses, filters and
//     appends each record
//
// Both passes share the skip count, the filter and the limit, so every
// ingested value was measured by the scan.
//
// # Basic Usage
//
//	p := pipeline.New(source.NewFileSource("Users.xml"), schema.DefaultUserSchema(),
//	    pipeline.DefaultOptions(), pipeline.WithMetrics(metrics.NewCollector("users")))
//	res, err := p.Run(ctx)
//	if err != nil {
//	    return err
//	}
//	report.NewBuilder(res.Table, report.DefaultOptions()).Build()
package pipeline

import (
	"context"
	"time"

	"github.com/ajitpratap0/tabulate/pkg/cache"
	_ "github.com/ajitpratap0/tabulate/pkg/columnar"
	"github.com/ajitpratap0/tabulate/pkg/logger"
	"github.com/ajitpratap0/tabulate/pkg/metrics"
	"github.com/ajitpratap0/tabulate/pkg/observability"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/scanner"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/source"
	"github.com/ajitpratap0/tabulate/pkg/table"
	"go.uber.org/zap"
)

// Options control a load. They replace the module-level switches of a
// one-off script with explicit values.
type Options struct {
	// EnforceSize fails the run on a text value longer than its attribute's
	// size. Without it such values are truncated to fit.
	EnforceSize bool
	// DynamicSizing runs the scan phase before ingestion
	DynamicSizing bool
	// Padding is added to every scanned size
	Padding int
	// SkipCount drops this many leading records in both passes
	SkipCount int
	// Limit stops after this many ingested rows (0 = unlimited)
	Limit int
	// Backend selects the table implementation
	Backend table.Backend
	// ProgressEvery logs progress every n records read (0 = never)
	ProgressEvery int
	// Filter decides which parsed records become rows
	Filter record.Filter
}

// DefaultOptions returns the settings of the users load
func DefaultOptions() Options {
	return Options{
		EnforceSize:   true,
		DynamicSizing: true,
		Padding:       schema.DefaultPadding,
		Backend:       table.BackendColumnar,
		ProgressEvery: 100000,
		Filter:        record.DefaultFilter(),
	}
}

// Result is a loaded table and the counts of the run
type Result struct {
	Table     table.Table
	Read      int // raw records decoded during ingestion
	Skipped   int // leading records dropped by SkipCount
	Filtered  int // records rejected by the filter
	Truncated int // text values cut to fit without size enforcement
	Ingested  int
	Sizes     scanner.Sizes // nil unless the scan ran
	FromCache bool
	Duration  time.Duration

	// TableBytes estimates table memory; zero when the backend cannot tell
	TableBytes int64
}

// Dropped is the number of records read but not appended
func (r *Result) Dropped() int {
	return r.Skipped + r.Filtered
}

// Pipeline loads one source into a table under a registry
type Pipeline struct {
	source   source.Source
	registry *schema.Registry
	opts     Options
	metrics  *metrics.Collector
	cache    *cache.Cache
	logger   *zap.Logger
}

// Option configures optional collaborators of a Pipeline
type Option func(*Pipeline)

// WithMetrics records counts and phase timings in c
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pipeline) { p.metrics = c }
}

// WithCache loads from c when it exists and saves to it after parsing
func WithCache(c *cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// New creates a pipeline. The registry is finalized and sealed by Run, so
// it must be fresh.
func New(src source.Source, reg *schema.Registry, opts Options, options ...Option) *Pipeline {
	if opts.Backend == "" {
		opts.Backend = table.BackendColumnar
	}
	if opts.Filter.IDAttribute == "" {
		opts.Filter = record.DefaultFilter()
	}

	p := &Pipeline{
		source:   src,
		registry: reg,
		opts:     opts,
		logger:   logger.With(zap.String("component", "pipeline")),
	}
	for _, o := range options {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = metrics.NewCollector(src.Name())
	}
	return p
}

// Metrics returns the collector the pipeline records into
func (p *Pipeline) Metrics() *metrics.Collector { return p.metrics }

// Run executes the phases. Every error is fatal and no partial table is returned.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	ctx = logger.WithSource(ctx, p.source.Name())

	var res *Result
	err := observability.Trace(ctx, "pipeline.run", func(ctx context.Context, span *observability.Span) error {
		span.SetAttribute("source", p.source.Name())
		span.SetAttribute("backend", string(p.opts.Backend))

		var err error
		if p.cache != nil && p.cache.Exists() {
			res, err = p.loadCache(ctx)
		} else {
			res, err = p.load(ctx)
		}
		if err != nil {
			return err
		}
		span.SetAttribute("rows", res.Table.Len())
		span.SetAttribute("from_cache", res.FromCache)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	rate := p.metrics.SetThroughput(res.Table.Len(), res.Duration)
	fields := []zap.Field{
		zap.Int("rows", res.Table.Len()),
		zap.Int("records_read", res.Read),
		zap.Int("records_dropped", res.Dropped()),
		zap.Int("values_truncated", res.Truncated),
		zap.Bool("from_cache", res.FromCache),
		zap.Duration("duration", res.Duration),
		zap.Float64("throughput_rps", rate),
	}
	if mr, ok := res.Table.(table.MemoryReporter); ok {
		res.TableBytes = mr.MemoryUsage()
		fields = append(fields, zap.Int64("table_bytes", res.TableBytes))
		if n := res.Table.Len(); n > 0 {
			fields = append(fields, zap.Float64("bytes_per_row", float64(res.TableBytes)/float64(n)))
		}
	}
	p.logger.Info("pipeline completed", fields...)
	return res, nil
}

func (p *Pipeline) load(ctx context.Context) (*Result, error) {
	if err := p.opts.Filter.Validate(p.registry); err != nil {
		return nil, err
	}
	parser := record.NewParser(p.registry)
	res := &Result{}

	if p.opts.DynamicSizing {
		sizes, err := p.scan(ctx, parser)
		if err != nil {
			return nil, err
		}
		res.Sizes = sizes
	}

	p.registry.Seal()
	tbl, err := table.New(p.opts.Backend, p.registry)
	if err != nil {
		return nil, err
	}
	res.Table = tbl

	if err := p.ingest(ctx, parser, res); err != nil {
		return nil, err
	}

	if p.cache != nil {
		err := observability.Trace(ctx, "pipeline.cache_save", func(ctx context.Context, span *observability.Span) error {
			timer := metrics.NewTimer(metrics.PhaseCache)
			defer p.metrics.ObservePhase(timer)
			span.SetAttribute("path", p.cache.Path())
			return p.cache.Save(tbl)
		})
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (p *Pipeline) scan(ctx context.Context, parser *record.Parser) (scanner.Sizes, error) {
	var sizes scanner.Sizes
	err := observability.Trace(ctx, "pipeline.scan", func(ctx context.Context, span *observability.Span) error {
		timer := metrics.NewTimer(metrics.PhaseScan)
		defer p.metrics.ObservePhase(timer)

		var err error
		sizes, err = scanner.Scan(logger.WithPhase(ctx, metrics.PhaseScan), p.source, parser, scanner.Options{
			Filter:    p.opts.Filter,
			SkipCount: p.opts.SkipCount,
			Limit:     p.opts.Limit,
		})
		if err != nil {
			return err
		}
		if err := p.registry.Finalize(sizes, p.opts.Padding); err != nil {
			return err
		}
		span.SetAttribute("attributes_sized", len(sizes))
		return nil
	})
	return sizes, err
}

func (p *Pipeline) ingest(ctx context.Context, parser *record.Parser, res *Result) error {
	log := logger.WithContext(logger.WithPhase(ctx, metrics.PhaseIngest)).With(zap.String("component", "pipeline"))
	progress := metrics.NewProgress(p.opts.ProgressEvery)

	return observability.Trace(ctx, "pipeline.ingest", func(ctx context.Context, span *observability.Span) error {
		timer := metrics.NewTimer(metrics.PhaseIngest)
		defer p.metrics.ObservePhase(timer)

		err := p.source.Each(ctx, func(raw record.RawRecord) error {
			res.Read++
			p.metrics.RecordsRead.Inc()
			if total, rate, ok := progress.Increment(); ok {
				log.Info("ingest progress",
					zap.Int64("records_read", total),
					zap.Int("rows", res.Ingested),
					zap.Float64("records_per_sec", rate))
			}

			if res.Read <= p.opts.SkipCount {
				res.Skipped++
				p.metrics.Dropped(metrics.ReasonSkipped)
				return nil
			}

			rec, err := parser.Parse(raw, false)
			if err != nil {
				return err
			}
			if !p.opts.Filter.Include(rec) {
				res.Filtered++
				p.metrics.Dropped(metrics.ReasonFiltered)
				return nil
			}

			if p.opts.EnforceSize {
				if err := rec.CheckSizes(); err != nil {
					p.metrics.Dropped(metrics.ReasonViolation)
					return err
				}
			} else {
				var cut int
				rec, cut = rec.Fit()
				res.Truncated += cut
			}

			if err := res.Table.Append(rec); err != nil {
				return err
			}
			res.Ingested++
			p.metrics.RecordsIngested.Inc()

			if p.opts.Limit > 0 && res.Ingested >= p.opts.Limit {
				log.Info("record limit reached", zap.Int("limit", p.opts.Limit))
				return source.ErrStop
			}
			return nil
		})
		if err != nil {
			return err
		}

		span.SetAttribute("records_read", res.Read)
		span.SetAttribute("rows", res.Ingested)
		if rss, err := p.metrics.SampleMemory(); err == nil {
			span.SetAttribute("rss_bytes", int64(rss))
		}
		return nil
	})
}

func (p *Pipeline) loadCache(ctx context.Context) (*Result, error) {
	var tbl table.Table
	err := observability.Trace(ctx, "pipeline.cache_load", func(ctx context.Context, span *observability.Span) error {
		timer := metrics.NewTimer(metrics.PhaseCache)
		defer p.metrics.ObservePhase(timer)
		span.SetAttribute("path", p.cache.Path())

		var err error
		tbl, err = p.cache.Load(p.registry, p.opts.Backend)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.metrics.RecordsIngested.Add(float64(tbl.Len()))
	return &Result{Table: tbl, Ingested: tbl.Len(), FromCache: true}, nil
}
