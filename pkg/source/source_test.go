package source

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersDoc = `<?xml version="1.0" encoding="utf-8"?>
<users>
  <row Id="-1" DisplayName="Community" AboutMe="&lt;p&gt;Hi, I'm not really a person.&lt;/p&gt;&#xA;" />
  <row Id="2" DisplayName="Geoff Dalgas" Location="Corvallis, OR" />
  <row Id="3" DisplayName="Jarrod Dixon"><note>ignored</note></row>
</users>`

func collect(t *testing.T, src Source) []record.RawRecord {
	t.Helper()
	var out []record.RawRecord
	err := src.Each(context.Background(), func(r record.RawRecord) error {
		out = append(out, maps.Clone(r))
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestBytesSourceYieldsRootChildren(t *testing.T) {
	rows := collect(t, NewBytesSource("users", []byte(usersDoc)))

	require.Len(t, rows, 3)
	assert.Equal(t, "-1", rows[0]["Id"])
	assert.Equal(t, "<p>Hi, I'm not really a person.</p>\n", rows[0]["AboutMe"], "entities are decoded")
	assert.Equal(t, "Corvallis, OR", rows[1]["Location"])
	_, present := rows[0]["Location"]
	assert.False(t, present, "missing attributes stay absent")
	assert.Equal(t, "Jarrod Dixon", rows[2]["DisplayName"])
}

func TestEachIsRepeatable(t *testing.T) {
	src := NewBytesSource("users", []byte(usersDoc))
	assert.Len(t, collect(t, src), 3)
	assert.Len(t, collect(t, src), 3)
}

func TestErrStopEndsIterationCleanly(t *testing.T) {
	src := NewBytesSource("users", []byte(usersDoc))
	seen := 0
	err := src.Each(context.Background(), func(record.RawRecord) error {
		seen++
		if seen == 2 {
			return ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
}

func TestMalformedDocuments(t *testing.T) {
	tests := map[string]string{
		"truncated":   `<users><row Id="1" />`,
		"bad syntax":  `<users><row Id=1 /></users>`,
		"empty":       ``,
		"two roots":   `<users></users><users></users>`,
		"no elements": `   `,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			err := NewBytesSource(name, []byte(doc)).Each(context.Background(), func(record.RawRecord) error { return nil })
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedSource), err.Error())
		})
	}
}

func TestFileSourceNotFound(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.xml"))
	err := src.Each(context.Background(), func(record.RawRecord) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceNotFound))
}

func TestFileSourceCompressed(t *testing.T) {
	dir := t.TempDir()

	gzPath := filepath.Join(dir, "Users.xml.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte(usersDoc))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	zstPath := filepath.Join(dir, "Users.xml.zst")
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(zstPath, enc.EncodeAll([]byte(usersDoc), nil), 0o600))
	require.NoError(t, enc.Close())

	plainPath := filepath.Join(dir, "Users.xml")
	require.NoError(t, os.WriteFile(plainPath, []byte(usersDoc), 0o600))

	for _, p := range []string{gzPath, zstPath, plainPath} {
		rows := collect(t, NewFileSource(p))
		assert.Len(t, rows, 3, p)
	}
}

func TestCallbackErrorPropagates(t *testing.T) {
	boom := errors.New(errors.ErrorTypeTypeCoercion, "boom")
	err := NewBytesSource("users", []byte(usersDoc)).Each(context.Background(), func(record.RawRecord) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestFileSourceCorruptCompressedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Users.xml.gz")
	require.NoError(t, os.WriteFile(path, []byte(usersDoc), 0o600))

	err := NewFileSource(path).Each(context.Background(), func(record.RawRecord) error { return nil })
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedSource))
}

func TestMappedSourceSharesMappingAcrossPasses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Users.xml")
	require.NoError(t, os.WriteFile(path, []byte(usersDoc), 0o600))

	src := NewMappedSource(path)
	first := collect(t, src)
	second := collect(t, src)
	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, "Corvallis, OR", first[1]["Location"])
	require.NoError(t, src.Close())

	assert.Len(t, collect(t, src), 3, "Each maps again after Close")
	require.NoError(t, src.Close())
}

func TestMappedSourceCompressedAndMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Users.xml.zst")
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, enc.EncodeAll([]byte(usersDoc), nil), 0o600))
	require.NoError(t, enc.Close())

	src := NewMappedSource(path)
	defer src.Close()
	assert.Len(t, collect(t, src), 3)

	err = NewMappedSource(filepath.Join(dir, "missing.xml")).Each(context.Background(), func(record.RawRecord) error { return nil })
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceNotFound))
}
