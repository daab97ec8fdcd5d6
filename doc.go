// Package tabulate loads a dump of flat XML records into an in-memory table
// under an explicit, typed schema and runs a fixed battery of descriptive
// queries over it.
//
// # Architecture
//
// A load is two passes over the same source:
//
//  1. Scan: every included record is parsed without size checks and the
//     longest value of each text attribute is recorded. The schema registry
//     is then finalized to those lengths plus padding and sealed.
//  2. Ingest: records are parsed again, filtered, checked against the sealed
//     sizes and appended to a row or columnar table.
//
// The loaded table can be cached as an Arrow IPC file, exported as Arrow,
// Avro or CSV, and summarized by the users report.
//
// # Packages
//
//   - pkg/source: XML record decoding, plain, compressed or memory-mapped
//   - pkg/schema, pkg/record: attribute kinds, the registry and coercion
//   - pkg/scanner: the sizing pass
//   - pkg/table, pkg/columnar: row and columnar table backends
//   - pkg/analytics, pkg/report: the query battery and its rendering
//   - pkg/cache, pkg/compression: snapshots and exports
//   - internal/pipeline: orchestration of one load
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/tabulate/internal/pipeline"
//	    "github.com/ajitpratap0/tabulate/pkg/report"
//	    "github.com/ajitpratap0/tabulate/pkg/schema"
//	    "github.com/ajitpratap0/tabulate/pkg/source"
//	)
//
//	p := pipeline.New(source.NewFileSource("Users.xml"), schema.DefaultUserSchema(),
//	    pipeline.DefaultOptions())
//	res, err := p.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r, err := report.NewBuilder(res.Table, report.DefaultOptions()).Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report.Write(os.Stdout, r, "text")
//
// # Command Line
//
//	tabulate run Users.xml --format json
//	tabulate scan Users.xml.gz --padding 10
//	tabulate export Users.xml -o users.avro --export-format avro --export-compression snappy
//	tabulate schema --yaml
//
// Every flag can also be set in a YAML file passed with --config or through a
// TABULATE_ environment variable, e.g. TABULATE_INGEST_BACKEND=row.
package tabulate
