package config

import (
	"os"
	"strings"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment variables read by Overlay
const EnvPrefix = "TABULATE"

// Load reads a YAML file over the defaults. Callers validate after
// overlaying flags.
func Load(filePath string) (*Config, error) {
	cfg := Default()
	if err := LoadFile(filePath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML file into out after substituting ${VAR} references
func LoadFile(filePath string, out interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(err, errors.ErrorTypeConfig, "config file not found").WithDetail("path", filePath)
		}
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to read config file")
	}

	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), out); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML").WithDetail("path", filePath)
	}
	return nil
}

// Save writes a configuration as YAML
func Save(filePath string, cfg interface{}) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write config file")
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		content = content[:start] + os.Getenv(varName) + content[end+1:]
	}
	return content
}

// NewViper returns a viper instance reading TABULATE_* variables, where a
// dotted key such as ingest.backend maps to TABULATE_INGEST_BACKEND
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// overlays maps viper keys to the fields they set
var overlays = map[string]func(v *viper.Viper, c *Config){
	"source":                      func(v *viper.Viper, c *Config) { c.Source = v.GetString("source") },
	"ingest.backend":              func(v *viper.Viper, c *Config) { c.Ingest.Backend = v.GetString("ingest.backend") },
	"ingest.enforce_size":         func(v *viper.Viper, c *Config) { c.Ingest.EnforceSize = v.GetBool("ingest.enforce_size") },
	"ingest.dynamic_sizing":       func(v *viper.Viper, c *Config) { c.Ingest.DynamicSizing = v.GetBool("ingest.dynamic_sizing") },
	"ingest.padding":              func(v *viper.Viper, c *Config) { c.Ingest.Padding = v.GetInt("ingest.padding") },
	"ingest.skip_count":           func(v *viper.Viper, c *Config) { c.Ingest.SkipCount = v.GetInt("ingest.skip_count") },
	"ingest.limit":                func(v *viper.Viper, c *Config) { c.Ingest.Limit = v.GetInt("ingest.limit") },
	"ingest.progress_every":       func(v *viper.Viper, c *Config) { c.Ingest.ProgressEvery = v.GetInt("ingest.progress_every") },
	"ingest.mmap":                 func(v *viper.Viper, c *Config) { c.Ingest.Mmap = v.GetBool("ingest.mmap") },
	"report.format":               func(v *viper.Viper, c *Config) { c.Report.Format = v.GetString("report.format") },
	"report.display_limit":        func(v *viper.Viper, c *Config) { c.Report.DisplayLimit = v.GetInt("report.display_limit") },
	"report.top_locations":        func(v *viper.Viper, c *Config) { c.Report.TopLocations = v.GetInt("report.top_locations") },
	"report.stale_days":           func(v *viper.Viper, c *Config) { c.Report.StaleDays = v.GetInt("report.stale_days") },
	"report.historical_reference": func(v *viper.Viper, c *Config) { c.Report.HistoricalReference = v.GetString("report.historical_reference") },
	"cache.enabled":               func(v *viper.Viper, c *Config) { c.Cache.Enabled = v.GetBool("cache.enabled") },
	"cache.path":                  func(v *viper.Viper, c *Config) { c.Cache.Path = v.GetString("cache.path") },
	"cache.compression":           func(v *viper.Viper, c *Config) { c.Cache.Compression = v.GetString("cache.compression") },
	"cache.level":                 func(v *viper.Viper, c *Config) { c.Cache.Level = v.GetInt("cache.level") },
	"logging.level":               func(v *viper.Viper, c *Config) { c.Logging.Level = v.GetString("logging.level") },
	"logging.encoding":            func(v *viper.Viper, c *Config) { c.Logging.Encoding = v.GetString("logging.encoding") },
	"logging.development":         func(v *viper.Viper, c *Config) { c.Logging.Development = v.GetBool("logging.development") },
	"observability.metrics_file":  func(v *viper.Viper, c *Config) { c.Observability.MetricsFile = v.GetString("observability.metrics_file") },
	"observability.trace":         func(v *viper.Viper, c *Config) { c.Observability.Trace = v.GetBool("observability.trace") },
}

// Keys lists the keys Overlay understands, for binding flags
func Keys() []string {
	keys := make([]string, 0, len(overlays))
	for k := range overlays {
		keys = append(keys, k)
	}
	return keys
}

// Overlay copies every key set in v (by a bound flag or a TABULATE_*
// variable) onto c. Unset keys keep the file or default value.
func Overlay(v *viper.Viper, c *Config) {
	for key, apply := range overlays {
		if v.IsSet(key) {
			apply(v, c)
		}
	}
}
