package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ajitpratap0/tabulate/pkg/cache"
	"github.com/ajitpratap0/tabulate/pkg/compression"
	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/metrics"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/source"
	"github.com/ajitpratap0/tabulate/pkg/table"
	"github.com/ajitpratap0/tabulate/pkg/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const users = `<?xml version="1.0" encoding="utf-8"?>
<users>
  <row Id="-1" Reputation="1" CreationDate="2008-07-31T00:00:00.000" DisplayName="Community" AboutMe="&lt;p&gt;Hi, I'm not really a person. I'm a background process that helps keep this site clean!&lt;/p&gt;" Age="0" />
  <row Id="1" Reputation="101" CreationDate="2008-07-31T14:22:31.287" DisplayName="Jeff Atwood" LastAccessDate="2014-05-30T17:00:00.000" Location="El Cerrito, CA" WebsiteUrl="http://www.codinghorror.com/blog/" Age="44" />
  <row Id="2" Reputation="101" CreationDate="2008-07-31T14:22:31.287" DisplayName="Geoff Dalgas" LastAccessDate="2012-01-01T00:00:00.000" Location="Corvallis, OR" AboutMe="&lt;p&gt;Dev&lt;/p&gt;" Age="37" />
  <row Id="3" Reputation="101" CreationDate="2009-02-01T00:00:00.000" DisplayName="Jarrod Dixon" Location="New York, NY" Age="35" />
  <row Id="4" Reputation="101" CreationDate="2010-03-04T05:06:07.000" DisplayName="Joel Spolsky" Location="Zürich" Age="45" />
</users>`

func usersSource() source.Source {
	return source.NewBytesSource("users", []byte(users))
}

func run(t *testing.T, reg *schema.Registry, opts Options, options ...Option) (*Result, error) {
	t.Helper()
	testutil.UseLogger(t)
	return New(usersSource(), reg, opts, options...).Run(context.Background())
}

func TestRunBothBackends(t *testing.T) {
	for _, b := range []table.Backend{table.BackendColumnar, table.BackendRow} {
		t.Run(string(b), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Backend = b

			res, err := run(t, schema.DefaultUserSchema(), opts)
			require.NoError(t, err)

			assert.Equal(t, 5, res.Read)
			assert.Equal(t, 4, res.Ingested)
			assert.Equal(t, 4, res.Table.Len())
			assert.Equal(t, 1, res.Filtered, "sentinel dropped")
			assert.Equal(t, 1, res.Dropped())
			assert.False(t, res.FromCache)
			assert.Positive(t, res.Duration)

			assert.Equal(t, 14, res.Sizes[schema.AttrLocation], "El Cerrito, CA")
			assert.Equal(t, len("<p>Dev</p>"), res.Sizes[schema.AttrAboutMe], "sentinel markup not measured")

			d, _ := res.Table.Schema().Lookup(schema.AttrLocation)
			assert.Equal(t, 14+schema.DefaultPadding, d.MaxSize)
			assert.True(t, res.Table.Schema().Sealed())

			row, err := res.Table.Row(3)
			require.NoError(t, err)
			v, _ := row.Get(schema.AttrLocation)
			assert.Equal(t, "Zürich", v.Str)

			if b == table.BackendColumnar {
				assert.Positive(t, res.TableBytes)
			} else {
				assert.Zero(t, res.TableBytes, "row backend reports no estimate")
			}
		})
	}
}

func TestDynamicSizingBounds(t *testing.T) {
	const padding = 2
	opts := DefaultOptions()
	opts.Padding = padding

	res, err := run(t, schema.DefaultUserSchema(), opts)
	require.NoError(t, err, "no record of the scanned corpus violates its own sizes")

	reg := res.Table.Schema()
	longest := res.Sizes[schema.AttrDisplayName]
	require.Equal(t, len("Geoff Dalgas"), longest)

	p := record.NewParser(reg)
	_, err = p.Parse(record.RawRecord{schema.AttrDisplayName: strings.Repeat("x", longest+padding)}, true)
	assert.NoError(t, err)
	_, err = p.Parse(record.RawRecord{schema.AttrDisplayName: strings.Repeat("x", longest+padding+1)}, true)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaViolation))

	rec, err := p.Parse(record.RawRecord{schema.AttrID: "9", schema.AttrDisplayName: strings.Repeat("x", longest+padding+1)}, false)
	require.NoError(t, err)
	assert.True(t, errors.IsType(res.Table.Append(rec), errors.ErrorTypeSchemaViolation))
}

func staticUserSchema(locationSize int) *schema.Registry {
	descs := schema.UserAttributes()
	for i := range descs {
		if descs[i].Name == schema.AttrLocation {
			descs[i].MaxSize = locationSize
		}
	}
	return schema.MustRegistry(descs...)
}

func TestStaticSizesEnforced(t *testing.T) {
	opts := DefaultOptions()
	opts.DynamicSizing = false

	_, err := run(t, staticUserSchema(6), opts)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaViolation))
}

func TestStaticSizesTruncatedWithoutEnforcement(t *testing.T) {
	opts := DefaultOptions()
	opts.DynamicSizing = false
	opts.EnforceSize = false

	res, err := run(t, staticUserSchema(6), opts)
	require.NoError(t, err)
	assert.Nil(t, res.Sizes)
	assert.Equal(t, 3, res.Truncated)

	col, err := res.Table.Column(schema.AttrLocation)
	require.NoError(t, err)
	assert.Equal(t, "El Cer", col.Value(0).Str)
	assert.Equal(t, "Zürich", col.Value(3).Str)
}

func TestSkipCountAndLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipCount = 2
	opts.Limit = 2

	res, err := run(t, schema.DefaultUserSchema(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 2, res.Ingested)
	assert.Equal(t, 4, res.Read, "iteration stops at the limit")

	id, err := res.Table.Column(schema.AttrID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id.Value(0).Int)
	assert.Equal(t, len("Corvallis, OR"), res.Sizes[schema.AttrLocation], "scan bounded like ingestion")
}

func TestCacheReuse(t *testing.T) {
	testutil.UseLogger(t)
	path := filepath.Join(t.TempDir(), "users.arrow.zst")

	first, err := run(t, schema.DefaultUserSchema(), DefaultOptions(),
		WithCache(cache.New(path, compression.Zstd, compression.Default)))
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := run(t, schema.DefaultUserSchema(), DefaultOptions(),
		WithCache(cache.New(path, compression.Zstd, compression.Default)))
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Table.Len(), second.Table.Len())
	assert.Equal(t, first.Table.Schema().Fingerprint(), second.Table.Schema().Fingerprint())

	for i := 0; i < first.Table.Len(); i++ {
		a, err := first.Table.Row(i)
		require.NoError(t, err)
		b, err := second.Table.Row(i)
		require.NoError(t, err)
		for c := 0; c < a.Len(); c++ {
			assert.True(t, a.At(c).Equal(b.At(c)), "row %d col %d", i, c)
		}
	}
}

func TestMetricsRecorded(t *testing.T) {
	c := metrics.NewCollector("users")
	_, err := run(t, schema.DefaultUserSchema(), DefaultOptions(), WithMetrics(c))
	require.NoError(t, err)

	assert.Equal(t, 5.0, promtest.ToFloat64(c.RecordsRead))
	assert.Equal(t, 4.0, promtest.ToFloat64(c.RecordsIngested))
}

func TestRunErrors(t *testing.T) {
	testutil.UseLogger(t)

	_, err := New(source.NewFileSource(filepath.Join(t.TempDir(), "absent.xml")),
		schema.DefaultUserSchema(), DefaultOptions()).Run(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceNotFound))

	_, err = New(source.NewBytesSource("broken", []byte(`<users><row Id="1"`)),
		schema.DefaultUserSchema(), DefaultOptions()).Run(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedSource))

	bad := `<users><row Id="1" Age="forty" /></users>`
	_, err = New(source.NewBytesSource("bad", []byte(bad)),
		schema.DefaultUserSchema(), DefaultOptions()).Run(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeCoercion))

	opts := DefaultOptions()
	opts.Backend = "hybrid"
	_, err = run(t, schema.DefaultUserSchema(), opts)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	reg := schema.DefaultUserSchema()
	reg.Seal()
	_, err = run(t, reg, DefaultOptions())
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema), "sizes cannot be finalized on a sealed registry")
}

func TestCancelledContext(t *testing.T) {
	testutil.UseLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(usersSource(), schema.DefaultUserSchema(), DefaultOptions()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
