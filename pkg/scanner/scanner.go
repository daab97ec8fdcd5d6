// Package scanner implements the sizing pre-pass: it reads the whole source once
// and records the longest value of every text attribute, so fixed-width text
// columns can be allocated from the data instead of from guessed bounds.
package scanner

import (
	"context"

	"github.com/ajitpratap0/tabulate/pkg/logger"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/source"
	"go.uber.org/zap"
)

// Sizes maps text attribute names to their longest observed length
type Sizes map[string]int

// Options mirror the inclusion rules of the ingestion pass. They must match
// it exactly, or the computed sizes under-allocate.
type Options struct {
	Filter    record.Filter
	SkipCount int // leading records ignored before measuring
	Limit     int // stop after this many included records; 0 means no limit
}

// Scan measures every included record with size enforcement disabled, so
// oversized values never abort the scan. The result has one entry per text
// attribute, 0 when no record matched.
func Scan(ctx context.Context, src source.Source, p *record.Parser, opts Options) (Sizes, error) {
	log := logger.WithContext(ctx).With(zap.String("component", "size_scanner"))

	texts := p.Schema().TextDescriptors()
	sizes := make(Sizes, len(texts))
	for _, d := range texts {
		sizes[d.Name] = 0
	}

	seen := 0
	included := 0

	err := src.Each(ctx, func(raw record.RawRecord) error {
		seen++
		if seen <= opts.SkipCount {
			return nil
		}

		rec, err := p.Parse(raw, false)
		if err != nil {
			return err
		}
		if !opts.Filter.Include(rec) {
			return nil
		}

		for _, d := range texts {
			v, _ := rec.Get(d.Name)
			if v.Null {
				continue
			}
			if n := record.Measure(d.Kind, v.Str); n > sizes[d.Name] {
				sizes[d.Name] = n
			}
		}

		included++
		if opts.Limit > 0 && included >= opts.Limit {
			return source.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("size scan complete",
		zap.String("source", src.Name()),
		zap.Int("records_seen", seen),
		zap.Int("records_measured", included),
		zap.Any("sizes", map[string]int(sizes)))

	return sizes, nil
}
