package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/tabulate/internal/pipeline"
	"github.com/ajitpratap0/tabulate/pkg/analytics"
	"github.com/ajitpratap0/tabulate/pkg/cache"
	"github.com/ajitpratap0/tabulate/pkg/compression"
	"github.com/ajitpratap0/tabulate/pkg/config"
	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/logger"
	"github.com/ajitpratap0/tabulate/pkg/metrics"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/report"
	"github.com/ajitpratap0/tabulate/pkg/scanner"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/source"
	"github.com/ajitpratap0/tabulate/pkg/table"
)

func (a *app) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [source]",
		Short: "Load a dump and print the users report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			opts, err := a.cfg.ReportOptions(time.Now().UTC())
			if err != nil {
				return err
			}
			r, err := report.NewBuilder(res.Table, opts).Build()
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), r, a.cfg.Report.Format)
		},
	}

	f := cmd.Flags()
	f.StringP("format", "f", "", "Report format (text, json)")
	f.Int("display-limit", 0, "Rows listed per section (0 = none, negative = all)")
	f.Int("top-locations", 0, "Number of locations in the frequency ranking")
	f.Int("stale-days", 0, "Days without access that make a user stale")
	f.String("historical-reference", "", "Reference date of the second staleness query (YYYY-MM-DD)")
	return cmd
}

func (a *app) scanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [source]",
		Short: "Measure the longest value of every text attribute",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applySource(args)
			if a.cfg.Source == "" {
				return errors.New(errors.ErrorTypeConfig, "scan needs a source")
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			reg, err := a.cfg.Registry()
			if err != nil {
				return err
			}

			src, closeSource := a.source()
			defer closeSource()

			start := time.Now()
			sizes, err := scanner.Scan(cmd.Context(), src, record.NewParser(reg), scanner.Options{
				Filter:    record.DefaultFilter(),
				SkipCount: a.cfg.Ingest.SkipCount,
				Limit:     a.cfg.Ingest.Limit,
			})
			if err != nil {
				return err
			}
			logger.WithContext(cmd.Context()).Info("scan completed",
				zap.String("source", a.cfg.Source),
				zap.Duration("duration", time.Since(start)))

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ATTRIBUTE\tKIND\tLONGEST\tSIZE")
			for _, d := range reg.TextDescriptors() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", d.Name, d.Kind, sizes[d.Name], sizes[d.Name]+a.cfg.Ingest.Padding)
			}
			return tw.Flush()
		},
	}
}

func (a *app) exportCommand() *cobra.Command {
	var (
		output    string
		format    string
		compress  string
		batchSize int
	)
	cmd := &cobra.Command{
		Use:   "export [source]",
		Short: "Load a dump and write the table as Arrow, Avro or CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return errors.New(errors.ErrorTypeConfig, "--output is required")
			}
			fmtKind, err := cache.ParseFormat(format)
			if err != nil {
				return err
			}
			alg, err := compression.Parse(compress)
			if err != nil {
				return err
			}

			res, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			opts := cache.ExportOptions{
				Compression: alg,
				Level:       compression.Level(a.cfg.Cache.Level),
				BatchSize:   batchSize,
			}
			if err := cache.ExportFile(output, res.Table, fmtKind, opts); err != nil {
				return err
			}
			logger.WithContext(cmd.Context()).Info("table exported",
				zap.String("path", output),
				zap.String("format", string(fmtKind)),
				zap.String("compression", string(alg)),
				zap.Int("rows", res.Table.Len()))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "Destination file")
	f.StringVar(&format, "export-format", string(cache.FormatArrow), "Export format (arrow, avro, csv)")
	f.StringVar(&compress, "export-compression", string(compression.None), "Export compression")
	f.IntVar(&batchSize, "batch-size", cache.DefaultBatchSize, "Rows per Arrow batch or Avro block")
	return cmd
}

func (a *app) describeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe [source]",
		Short: "Load a dump and summarize every numeric and date attribute",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ATTRIBUTE\tKIND\tCOUNT\tMISSING\tMIN\tMAX\tMEAN")
			for _, d := range res.Table.Schema().Descriptors() {
				if d.Kind.IsText() {
					continue
				}
				col, err := res.Table.Column(d.Name)
				if err != nil {
					return err
				}
				s, err := analytics.Describe(col)
				if err != nil {
					return err
				}
				lo, hi, mean := describeBound(d.Kind, s.Min), describeBound(d.Kind, s.Max), describeBound(d.Kind, s.Mean)
				if s.Count == 0 {
					lo, hi, mean = "-", "-", "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n", d.Name, d.Kind, s.Count, s.Missing, lo, hi, mean)
			}
			return tw.Flush()
		},
	}
}

func describeBound(kind schema.AttributeKind, f float64) string {
	if kind == schema.KindDate {
		return record.DateValue(f).String()
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (a *app) schemaCommand() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the configured attribute schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.cfg.Registry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asYAML {
				attrs := make([]config.AttributeConfig, 0, reg.Len())
				for _, d := range reg.Descriptors() {
					attrs = append(attrs, config.AttributeConfig{Name: d.Name, Kind: d.Kind.String(), MaxSize: d.MaxSize})
				}
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(map[string]interface{}{"schema": attrs}); err != nil {
					return err
				}
				return enc.Close()
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ATTRIBUTE\tKIND\tMAX SIZE")
			for _, d := range reg.Descriptors() {
				size := "-"
				if d.Kind.IsText() {
					size = fmt.Sprint(d.MaxSize)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Kind, size)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nkinds: %v\nbackends: %v\n", schema.SortedKinds(), table.Backends())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print as a configuration schema block")
	return cmd
}

func (a *app) applySource(args []string) {
	if len(args) == 1 {
		a.cfg.Source = args[0]
	}
}

// source opens the configured input, memory-mapped when requested
func (a *app) source() (source.Source, func()) {
	if a.cfg.Ingest.Mmap {
		src := source.NewMappedSource(a.cfg.Source)
		return src, func() {
			if err := src.Close(); err != nil {
				logger.Get().Warn("failed to unmap source", zap.Error(err))
			}
		}
	}
	return source.NewFileSource(a.cfg.Source), func() {}
}

// load validates the configuration and runs the pipeline it describes
func (a *app) load(ctx context.Context, args []string) (*pipeline.Result, error) {
	a.applySource(args)
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	name := cfg.Source
	if name == "" {
		name = cfg.Cache.Path
	}
	collector := metrics.NewCollector(name)
	options := []pipeline.Option{pipeline.WithMetrics(collector)}
	if cfg.Cache.Enabled {
		store, err := cfg.CacheStore()
		if err != nil {
			return nil, err
		}
		options = append(options, pipeline.WithCache(store))
	}

	opts := pipeline.DefaultOptions()
	opts.EnforceSize = cfg.Ingest.EnforceSize
	opts.DynamicSizing = cfg.Ingest.DynamicSizing
	opts.Padding = cfg.Ingest.Padding
	opts.SkipCount = cfg.Ingest.SkipCount
	opts.Limit = cfg.Ingest.Limit
	opts.Backend = table.Backend(cfg.Ingest.Backend)
	opts.ProgressEvery = cfg.Ingest.ProgressEvery

	src, closeSource := a.source()
	defer closeSource()

	res, err := pipeline.New(src, reg, opts, options...).Run(ctx)
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.Int("rows", res.Ingested),
		zap.Duration("duration", res.Duration),
		zap.Duration("uptime", collector.Uptime()),
	}
	if rss, err := metrics.ResidentMemory(); err == nil {
		fields = append(fields, zap.Uint64("rss_bytes", rss))
	}
	logger.WithContext(ctx).Info("load summary", fields...)

	if path := cfg.Observability.MetricsFile; path != "" {
		if err := collector.WriteTextfile(path); err != nil {
			return nil, err
		}
	}
	return res, nil
}
