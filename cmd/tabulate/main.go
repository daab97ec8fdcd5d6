package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tabulate/pkg/config"
	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/logger"
	"github.com/ajitpratap0/tabulate/pkg/observability"
)

var version = "0.1.0"

// app carries the state shared by all subcommands
type app struct {
	configFile string
	viper      *viper.Viper
	cfg        *config.Config
	shutdown   func(context.Context) error
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"source":               "source",
	"backend":              "ingest.backend",
	"enforce-size":         "ingest.enforce_size",
	"dynamic-sizing":       "ingest.dynamic_sizing",
	"padding":              "ingest.padding",
	"skip":                 "ingest.skip_count",
	"limit":                "ingest.limit",
	"progress-every":       "ingest.progress_every",
	"mmap":                 "ingest.mmap",
	"format":               "report.format",
	"display-limit":        "report.display_limit",
	"top-locations":        "report.top_locations",
	"stale-days":           "report.stale_days",
	"historical-reference": "report.historical_reference",
	"cache":                "cache.enabled",
	"cache-path":           "cache.path",
	"cache-compression":    "cache.compression",
	"log-level":            "logging.level",
	"log-encoding":         "logging.encoding",
	"metrics-file":         "observability.metrics_file",
	"trace":                "observability.trace",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errors.Describe(err))
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{viper: config.NewViper()}

	root := &cobra.Command{
		Use:   "tabulate",
		Short: "tabulate - typed XML attribute ingestion and descriptive analytics",
		Long: `tabulate loads a dump of <row .../> elements into an in-memory table under an
explicit schema, sizing text attributes from the data, and runs a fixed battery of
descriptive queries over it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			defer logger.Sync()
			if a.shutdown != nil {
				return a.shutdown(cmd.Context())
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "Path to a YAML configuration file")
	pf.StringP("source", "s", "", "Path of the XML dump (.gz, .zst, .lz4, .s2 decompressed transparently)")
	pf.String("backend", "", "Table backend (columnar, row)")
	pf.Bool("enforce-size", true, "Fail on text longer than its attribute size instead of truncating")
	pf.Bool("dynamic-sizing", true, "Size text attributes from a scan of the data")
	pf.Int("padding", 0, "Added to every scanned text size")
	pf.Int("skip", 0, "Number of leading records to ignore")
	pf.Int("limit", 0, "Stop after this many rows (0 = unlimited)")
	pf.Int("progress-every", 0, "Log progress every n records")
	pf.Bool("mmap", false, "Memory-map the source file once for both passes")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-encoding", "", "Log encoding (console, json)")
	pf.String("metrics-file", "", "Write Prometheus metrics to this textfile at exit")
	pf.Bool("trace", false, "Print pipeline spans to stderr")
	pf.Bool("cache", false, "Load the table from the cache when present and save it after parsing")
	pf.String("cache-path", "", "Cache file location")
	pf.String("cache-compression", "", "Cache compression (none, gzip, snappy, lz4, zstd, s2, deflate)")

	root.AddCommand(
		versionCommand(),
		a.runCommand(),
		a.scanCommand(),
		a.exportCommand(),
		a.describeCommand(),
		a.schemaCommand(),
	)
	return root
}

// setup loads configuration, overlays environment and flags, and starts logging
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := bindFlags(a.viper, cmd.Flags()); err != nil {
		return err
	}

	cfg := config.Default()
	if a.configFile != "" {
		loaded, err := config.Load(a.configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	config.Overlay(a.viper, cfg)
	a.cfg = cfg

	l, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	runID := logger.NewRunID()
	logger.Set(l.With(zap.String("command", cmd.Name())))
	cmd.SetContext(logger.WithRun(cmd.Context(), runID))

	if cfg.Observability.Trace {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    "tabulate",
			ServiceVersion: version,
			SamplingRate:   1,
		})
		if err != nil {
			return err
		}
		a.shutdown = shutdown
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tabulate v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
