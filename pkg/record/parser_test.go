package record

import (
	"math"
	"testing"
	"time"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userParser(t *testing.T) *Parser {
	t.Helper()
	return NewParser(schema.DefaultUserSchema())
}

func TestParseFullRecord(t *testing.T) {
	p := userParser(t)
	raw := RawRecord{
		"Id":             "2",
		"Reputation":     "101",
		"CreationDate":   "2010-07-19T14:01:36.697",
		"DisplayName":    "Geoff Dalgas",
		"LastAccessDate": "2013-11-12T22:07:23.783",
		"WebsiteUrl":     "http://stackoverflow.com",
		"Location":       "Corvallis, OR",
		"AboutMe":        "<p>Developer on the StackOverflow team.</p>",
		"Views":          "25",
		"UpVotes":        "3",
		"DownVotes":      "0",
		"Age":            "37",
		"AccountId":      "2",
	}

	rec, err := p.Parse(raw, true)
	require.NoError(t, err)
	require.Equal(t, 13, rec.Len())

	id, _ := rec.Get("Id")
	assert.Equal(t, IntValue(2), id)
	loc, _ := rec.Get("Location")
	assert.Equal(t, TextValue("Corvallis, OR"), loc)
	about, _ := rec.Get("AboutMe")
	assert.Equal(t, schema.KindMarkupText, about.Kind)
	created, _ := rec.Get("CreationDate")
	assert.Equal(t, time.Date(2010, 7, 19, 14, 1, 36, 0, time.UTC), created.Time())
}

func TestParseAbsentAttributesUseKindDefaults(t *testing.T) {
	reg := schema.MustRegistry(
		schema.AttributeDescriptor{Name: "Id", Kind: schema.KindInteger},
		schema.AttributeDescriptor{Name: "Score", Kind: schema.KindFloat},
		schema.AttributeDescriptor{Name: "Seen", Kind: schema.KindDate},
		schema.AttributeDescriptor{Name: "Location", Kind: schema.KindText, MaxSize: 5},
		schema.AttributeDescriptor{Name: "AboutMe", Kind: schema.KindMarkupText, MaxSize: 5},
	)

	rec, err := NewParser(reg).Parse(RawRecord{}, true)
	require.NoError(t, err)

	assert.Equal(t, IntValue(0), rec.At(0))
	assert.Equal(t, FloatValue(0), rec.At(1))
	assert.Equal(t, DateValue(0), rec.At(2))
	assert.True(t, rec.At(3).Null, "absent text passes through as null")
	assert.Equal(t, MarkupValue(""), rec.At(4))
}

func TestParseCoercionErrors(t *testing.T) {
	reg := schema.MustRegistry(
		schema.AttributeDescriptor{Name: "Id", Kind: schema.KindInteger},
		schema.AttributeDescriptor{Name: "Score", Kind: schema.KindFloat},
		schema.AttributeDescriptor{Name: "Seen", Kind: schema.KindDate},
	)
	p := NewParser(reg)

	tests := []struct {
		name string
		raw  RawRecord
		attr string
	}{
		{"integer", RawRecord{"Id": "twelve"}, "Id"},
		{"float", RawRecord{"Score": "1.2.3"}, "Score"},
		{"date", RawRecord{"Seen": "yesterday"}, "Seen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.raw, false)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeTypeCoercion))

			var typed *errors.Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, tt.attr, typed.Details["attribute"])
		})
	}
}

func TestParseOversizedText(t *testing.T) {
	reg := schema.MustRegistry(
		schema.AttributeDescriptor{Name: "Location", Kind: schema.KindText, MaxSize: 5},
	)
	p := NewParser(reg)

	_, err := p.Parse(RawRecord{"Location": "abcdef"}, true)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaViolation))

	rec, err := p.Parse(RawRecord{"Location": "abcdef"}, false)
	require.NoError(t, err, "size is not checked without enforcement")
	assert.Equal(t, "abcdef", rec.At(0).Str)

	_, err = p.Parse(RawRecord{"Location": "abcde"}, true)
	assert.NoError(t, err)
}

func TestMeasureTextCountsCharactersMarkupCountsBytes(t *testing.T) {
	s := "Zürich" // 6 characters, 7 bytes
	assert.Equal(t, 6, Measure(schema.KindText, s))
	assert.Equal(t, 7, Measure(schema.KindMarkupText, s))

	reg := schema.MustRegistry(
		schema.AttributeDescriptor{Name: "Location", Kind: schema.KindText, MaxSize: 6},
		schema.AttributeDescriptor{Name: "AboutMe", Kind: schema.KindMarkupText, MaxSize: 6},
	)
	p := NewParser(reg)

	_, err := p.Parse(RawRecord{"Location": s}, true)
	assert.NoError(t, err)
	_, err = p.Parse(RawRecord{"AboutMe": s}, true)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaViolation))
}

func TestDateRoundTripTruncatesSubSecond(t *testing.T) {
	d := schema.AttributeDescriptor{Name: "CreationDate", Kind: schema.KindDate}

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2010-07-19T06:55:26.860", time.Date(2010, 7, 19, 6, 55, 26, 0, time.UTC)},
		{"2010-07-19T06:55:26", time.Date(2010, 7, 19, 6, 55, 26, 0, time.UTC)},
		{"2014-06-01T00:00:00.999Z", time.Date(2014, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"2014-06-01T02:00:00+02:00", time.Date(2014, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"2014-06-01", time.Date(2014, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		v, err := Coerce(d, tt.in, true)
		require.NoError(t, err, tt.in)
		assert.Equal(t, float64(tt.want.Unix()), v.Float, tt.in)
		assert.Equal(t, tt.want, v.Time(), tt.in)
		_, frac := math.Modf(v.Float)
		assert.Zero(t, frac, "sub-second precision is truncated")
	}
}

func TestParseTrimsNumericWhitespace(t *testing.T) {
	reg := schema.MustRegistry(schema.AttributeDescriptor{Name: "Age", Kind: schema.KindInteger})
	rec, err := NewParser(reg).Parse(RawRecord{"Age": " 37 "}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(37), rec.At(0).Int)
}

func TestFilter(t *testing.T) {
	reg := schema.DefaultUserSchema()
	p := NewParser(reg)
	f := DefaultFilter()
	require.NoError(t, f.Validate(reg))

	for in, want := range map[string]bool{"-1": false, "0": false, "1": true, "42": true} {
		rec, err := p.Parse(RawRecord{"Id": in}, false)
		require.NoError(t, err)
		assert.Equal(t, want, f.Include(rec), "Id=%s", in)
	}

	missing, err := p.Parse(RawRecord{}, false)
	require.NoError(t, err)
	assert.False(t, f.Include(missing), "absent id coerces to 0")

	assert.True(t, errors.IsType(Filter{IDAttribute: "Nope"}.Validate(reg), errors.ErrorTypeUnknownColumn))
	assert.True(t, errors.IsType(Filter{IDAttribute: "Location"}.Validate(reg), errors.ErrorTypeSchema))
}

func TestNewTypedRecordChecksShape(t *testing.T) {
	reg := schema.MustRegistry(
		schema.AttributeDescriptor{Name: "Id", Kind: schema.KindInteger},
		schema.AttributeDescriptor{Name: "Location", Kind: schema.KindText, MaxSize: 10},
	)

	_, err := NewTypedRecord(reg, []Value{IntValue(1)})
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	_, err = NewTypedRecord(reg, []Value{TextValue("x"), TextValue("y")})
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	rec, err := NewTypedRecord(reg, []Value{IntValue(1), NullText()})
	require.NoError(t, err)
	assert.Equal(t, map[string]Value{"Id": IntValue(1), "Location": NullText()}, rec.Map())
}

func TestValueNumberAndMissing(t *testing.T) {
	n, ok := IntValue(4).Number()
	assert.True(t, ok)
	assert.Equal(t, 4.0, n)

	_, ok = TextValue("4").Number()
	assert.False(t, ok)

	assert.True(t, NullText().Missing())
	assert.True(t, FloatValue(math.NaN()).Missing())
	assert.False(t, FloatValue(0).Missing())
	assert.True(t, IntValue(3).Equal(IntValue(3)))
	assert.False(t, IntValue(3).Equal(FloatValue(3)))
	assert.Equal(t, -1, TextValue("a").Compare(TextValue("b")))
}

func TestTruncateKeepsValidText(t *testing.T) {
	tests := []struct {
		kind schema.AttributeKind
		in   string
		max  int
		want string
	}{
		{schema.KindText, "Zürich", 2, "Zü"},
		{schema.KindText, "Zürich", 6, "Zürich"},
		{schema.KindText, "Zürich", 0, ""},
		{schema.KindMarkupText, "Zürich", 2, "Z"},
		{schema.KindMarkupText, "Zürich", 3, "Zü"},
		{schema.KindMarkupText, "<p>", 10, "<p>"},
	}
	for _, tt := range tests {
		got := Truncate(tt.kind, tt.in, tt.max)
		assert.Equal(t, tt.want, got, "%s %q %d", tt.kind, tt.in, tt.max)
		assert.LessOrEqual(t, Measure(tt.kind, got), tt.max)
	}
}

func TestCheckSizesAndFit(t *testing.T) {
	reg := schema.MustRegistry(
		schema.AttributeDescriptor{Name: "Id", Kind: schema.KindInteger},
		schema.AttributeDescriptor{Name: "Location", Kind: schema.KindText, MaxSize: 3},
		schema.AttributeDescriptor{Name: "Website", Kind: schema.KindText, MaxSize: 3},
	)
	rec, err := NewParser(reg).Parse(RawRecord{"Id": "1", "Location": "Berlin"}, false)
	require.NoError(t, err)

	assert.True(t, errors.IsType(rec.CheckSizes(), errors.ErrorTypeSchemaViolation))

	fitted, cut := rec.Fit()
	assert.Equal(t, 1, cut)
	assert.Equal(t, "Ber", fitted.At(1).Str)
	assert.True(t, fitted.At(2).Null, "null text is left alone")
	assert.NoError(t, fitted.CheckSizes())
	assert.Equal(t, "Berlin", rec.At(1).Str, "original record unchanged")

	same, cut := fitted.Fit()
	assert.Zero(t, cut)
	assert.Equal(t, fitted.Values(), same.Values())
}
