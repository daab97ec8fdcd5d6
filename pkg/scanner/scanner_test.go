package scanner

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/source"
	"github.com/ajitpratap0/tabulate/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `<users>
  <row Id="-1" DisplayName="Community account with a very long name" AboutMe="&lt;p&gt;sentinel markup that is longer than everything else&lt;/p&gt;" />
  <row Id="2" DisplayName="Geoff" Location="Zürich" AboutMe="&lt;b&gt;hi&lt;/b&gt;" />
  <row Id="3" DisplayName="Jarrod Dixon" WebsiteUrl="http://x.io" />
</users>`

func newParser() *record.Parser {
	return record.NewParser(schema.DefaultUserSchema())
}

func TestScanMeasuresIncludedRecordsOnly(t *testing.T) {
	testutil.UseLogger(t)

	sizes, err := Scan(context.Background(), source.NewBytesSource("users", []byte(doc)), newParser(),
		Options{Filter: record.DefaultFilter()})
	require.NoError(t, err)

	assert.Equal(t, Sizes{
		schema.AttrDisplayName: 12, // "Jarrod Dixon"; the sentinel is filtered out
		schema.AttrWebsiteURL:  11,
		schema.AttrLocation:    6, // characters, not bytes
		schema.AttrAboutMe:     len("<b>hi</b>"),
	}, sizes)
}

func TestScanSkipCount(t *testing.T) {
	testutil.UseLogger(t)

	sizes, err := Scan(context.Background(), source.NewBytesSource("users", []byte(doc)), newParser(),
		Options{Filter: record.DefaultFilter(), SkipCount: 2})
	require.NoError(t, err)

	assert.Equal(t, 12, sizes[schema.AttrDisplayName])
	assert.Equal(t, 0, sizes[schema.AttrLocation])
}

func TestScanLimit(t *testing.T) {
	testutil.UseLogger(t)

	sizes, err := Scan(context.Background(), source.NewBytesSource("users", []byte(doc)), newParser(),
		Options{Filter: record.DefaultFilter(), Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, 5, sizes[schema.AttrDisplayName], "only the first included record is measured")
}

func TestScanEmptySourceReportsZeroes(t *testing.T) {
	testutil.UseLogger(t)

	sizes, err := Scan(context.Background(), source.NewBytesSource("users", []byte("<users/>")), newParser(),
		Options{Filter: record.DefaultFilter()})
	require.NoError(t, err)

	require.Len(t, sizes, 4)
	for name, n := range sizes {
		assert.Zero(t, n, name)
	}
}

func TestScanIgnoresStaticSizes(t *testing.T) {
	testutil.UseLogger(t)
	long := strings.Repeat("x", 80)
	in := `<users><row Id="1" DisplayName="` + long + `" /></users>`

	sizes, err := Scan(context.Background(), source.NewBytesSource("users", []byte(in)), newParser(),
		Options{Filter: record.DefaultFilter()})
	require.NoError(t, err, "oversized values never abort the scan")
	assert.Equal(t, 80, sizes[schema.AttrDisplayName])
}

func TestScanFatalSourceErrors(t *testing.T) {
	testutil.UseLogger(t)
	p := newParser()

	_, err := Scan(context.Background(), source.NewFileSource(filepath.Join(t.TempDir(), "Users.xml")), p,
		Options{Filter: record.DefaultFilter()})
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceNotFound))

	_, err = Scan(context.Background(), source.NewBytesSource("bad", []byte("<users><row")), p,
		Options{Filter: record.DefaultFilter()})
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedSource))

	_, err = Scan(context.Background(), source.NewBytesSource("bad", []byte(`<users><row Id="x"/></users>`)), p,
		Options{Filter: record.DefaultFilter()})
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeCoercion))
}
