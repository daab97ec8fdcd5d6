package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/tabulate/pkg/config"
	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/report"
	"github.com/ajitpratap0/tabulate/pkg/testutil"
)

const users = `<?xml version="1.0" encoding="utf-8"?>
<users>
  <row Id="-1" CreationDate="2008-07-31T00:00:00.000" DisplayName="Community" LastAccessDate="2008-08-26T00:00:00.000" Views="649" UpVotes="506" DownVotes="37358" Age="99" />
  <row Id="1" CreationDate="2008-07-31T14:22:31.287" DisplayName="Jeff" LastAccessDate="2014-05-30T17:00:00.000" Location="El Cerrito, CA" AboutMe="&lt;p&gt;one two&lt;/p&gt;" Views="100" UpVotes="10" DownVotes="1" Age="17" />
  <row Id="2" CreationDate="2008-07-31T14:22:31.287" DisplayName="Geoff" LastAccessDate="2012-01-01T00:00:00.000" Location="Corvallis, OR" Views="25" UpVotes="30" DownVotes="1" Age="25" />
</users>`

func writeUsers(t *testing.T) string {
	return testutil.WriteFile(t, "Users.xml", []byte(users))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestRunJSONReport(t *testing.T) {
	out, err := execute(t, "run", writeUsers(t), "--format", "json", "--display-limit", "-1")
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 2, r.Records)
	assert.Len(t, r.Sections, 17)
	assert.Equal(t, []int{0, 1}, r.Sections[0].Rows)
}

func TestRunMappedSource(t *testing.T) {
	out, err := execute(t, "run", writeUsers(t), "--mmap", "--format", "json")
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 2, r.Records)
}

func TestRunWritesMetricsFile(t *testing.T) {
	metricsFile := filepath.Join(t.TempDir(), "tabulate.prom")
	_, err := execute(t, "run", writeUsers(t), "--metrics-file", metricsFile)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tabulate_records_ingested_total")
}

func TestRunRejectsBadConfig(t *testing.T) {
	_, err := execute(t, "run", writeUsers(t), "--backend", "btree")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = execute(t, "run")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), "no source and no cache")

	_, err = execute(t, "run", filepath.Join(t.TempDir(), "missing.xml"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceNotFound))
}

func TestRunReadsConfigFile(t *testing.T) {
	cfg := config.Default()
	cfg.Source = writeUsers(t)
	cfg.Report.Format = "json"
	path := filepath.Join(t.TempDir(), "tabulate.yaml")
	require.NoError(t, config.Save(path, cfg))

	out, err := execute(t, "run", "--config", path)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestScan(t *testing.T) {
	out, err := execute(t, "scan", writeUsers(t), "--padding", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "ATTRIBUTE")
	assert.Regexp(t, `Location\s+text\s+14\s+17`, out)
}

func TestScanRejectsInvalidSettings(t *testing.T) {
	for _, args := range [][]string{
		{"--padding=-3"},
		{"--skip=-1"},
	} {
		out, err := execute(t, append([]string{"scan", writeUsers(t)}, args...)...)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), args)
		assert.NotContains(t, out, "ATTRIBUTE", args)
	}
}

func TestDescribe(t *testing.T) {
	out, err := execute(t, "describe", writeUsers(t))
	require.NoError(t, err)
	assert.Regexp(t, `Age\s+integer\s+2\s+0\s+17\s+25\s+21\n`, out)
	assert.Regexp(t, `Reputation\s+integer\s+2\s+0\s+0\s+0\s+0\n`, out, "absent integers read as 0")
	assert.Regexp(t, `CreationDate\s+date\s+2\s+0\s+2008-07-31 14:22:31`, out)
	assert.NotContains(t, out, "Location")
}

func TestExportCSV(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out", "users.csv")
	_, err := execute(t, "export", writeUsers(t), "-o", dest, "--export-format", "csv")
	require.NoError(t, err)

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Id", rows[0][0])
	assert.Equal(t, "1", rows[1][0])

	_, err = execute(t, "export", writeUsers(t), "--export-format", "csv")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), "output is required")
}

func TestSchemaYAML(t *testing.T) {
	out, err := execute(t, "schema", "--yaml")
	require.NoError(t, err)

	var doc struct {
		Schema []config.AttributeConfig `yaml:"schema"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.NotEmpty(t, doc.Schema)
	assert.Equal(t, "Id", doc.Schema[0].Name)
	assert.Equal(t, "integer", doc.Schema[0].Kind)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tabulate v"+version)
}

func TestFlagsMapToConfigKeys(t *testing.T) {
	keys := config.Keys()
	for flag, key := range flagKeys {
		assert.Contains(t, keys, key, flag)
	}
}
