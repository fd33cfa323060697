// Package config loads the mealsmoke configuration document through viper:
// defaults, then an optional YAML file, then MEALSMOKE_* environment variables
// and bound command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/mealsmoke/internal/auth"
	"github.com/loykin/mealsmoke/internal/common"
	"github.com/loykin/mealsmoke/internal/httpc"
	"github.com/loykin/mealsmoke/internal/metrics"
	"github.com/loykin/mealsmoke/internal/store"
	"github.com/loykin/mealsmoke/internal/suite"
	"github.com/loykin/mealsmoke/internal/wait"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. MEALSMOKE_BASE_URL.
	EnvPrefix = "MEALSMOKE"
	// DefaultBaseURL is where a locally started meal_max listens.
	DefaultBaseURL = "http://localhost:5000/api"
	// DefaultPath is read when no --config is given; its absence is fine.
	DefaultPath = "./mealsmoke.yaml"
)

// ClientConfig tunes the HTTP client used for every smoke request.
type ClientConfig struct {
	Timeout       time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	Insecure      bool              `mapstructure:"insecure" yaml:"insecure"`
	MinTLSVersion string            `mapstructure:"min_tls_version" yaml:"min_tls_version"`
	MaxTLSVersion string            `mapstructure:"max_tls_version" yaml:"max_tls_version"`
	Headers       map[string]string `mapstructure:"headers" yaml:"headers"`
}

// LoggingConfig mirrors common.LogOptions.
type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	Color         *bool  `mapstructure:"color" yaml:"color"`                   // force colorized output
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
	File          string `mapstructure:"file" yaml:"file"`
	MaxSizeMB     int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups    int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays    int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress      bool   `mapstructure:"compress" yaml:"compress"`
}

// Doc is the whole configuration document.
type Doc struct {
	BaseURL  string         `mapstructure:"base_url"`
	EchoJSON bool           `mapstructure:"echo_json"`
	Client   ClientConfig   `mapstructure:"client"`
	Auth     auth.Config    `mapstructure:"auth"`
	Wait     wait.Config    `mapstructure:"wait"`
	Fixtures suite.Fixtures `mapstructure:"fixtures"`
	Store    store.Config   `mapstructure:"store"`
	Metrics  metrics.Config `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SetDefaults installs every default on v. Keys with a default can be
// overridden from the environment.
func SetDefaults(v *viper.Viper) {
	d := suite.DefaultFixtures()
	v.SetDefault("config", DefaultPath)
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("echo_json", false)
	v.SetDefault("client.timeout", "30s")
	v.SetDefault("client.insecure", false)
	v.SetDefault("auth.type", "")
	v.SetDefault("wait.url", "")
	v.SetDefault("wait.timeout", wait.DefaultTimeout.String())
	v.SetDefault("wait.interval", wait.DefaultInterval.String())
	v.SetDefault("fixtures.delete_id", d.DeleteID)
	v.SetDefault("fixtures.get_id", d.GetID)
	v.SetDefault("fixtures.get_name", d.GetName)
	v.SetDefault("fixtures.combatants", d.Combatants)
	v.SetDefault("fixtures.leaderboard_sorts", d.LeaderboardSorts)
	v.SetDefault("store.type", store.DriverNone)
	v.SetDefault("store.save_response_body", false)
	v.SetDefault("store.table_prefix", "")
	v.SetDefault("store.sqlite.path", "mealsmoke.db")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job_name", metrics.DefaultJobName)
	v.SetDefault("metrics.timeout", "10s")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the file named by the "config" key into v and decodes the
// result. A missing file is an error only when explicit is true.
func Load(v *viper.Viper, explicit bool) (*Doc, error) {
	path := strings.TrimSpace(v.GetString("config"))
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var pathErr *fs.PathError
			missing := errors.As(err, &pathErr) || errors.Is(err, os.ErrNotExist)
			if !missing || explicit {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
			common.LogDebug("no config file, using defaults", "path", path)
		}
	}

	var doc Doc
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&doc, hook); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if len(doc.Fixtures.Meals) == 0 {
		doc.Fixtures.Meals = suite.DefaultFixtures().Meals
	}
	return &doc, nil
}

// Validate rejects documents that cannot produce a meaningful run.
func (d *Doc) Validate() error {
	var errs []error
	u, err := url.Parse(strings.TrimSpace(d.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url must be an absolute http(s) URL, got %q", d.BaseURL))
	}
	for key, v := range map[string]string{"client.min_tls_version": d.Client.MinTLSVersion, "client.max_tls_version": d.Client.MaxTLSVersion} {
		if strings.TrimSpace(v) != "" && httpc.ParseTLSVersion(v) == 0 {
			errs = append(errs, fmt.Errorf("%s: unknown TLS version %q", key, v))
		}
	}
	if _, err := common.ParseLogLevel(d.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch store.NormalizeDriver(d.Store.Driver) {
	case store.DriverNone, store.DriverSqlite, store.DriverPostgresql:
	default:
		errs = append(errs, fmt.Errorf("store.type: unsupported driver %q (valid: sqlite, postgresql)", d.Store.Driver))
	}
	if err := d.Fixtures.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// HTTPClient returns the client description for the smoke run.
func (d *Doc) HTTPClient() *httpc.Httpc {
	headers := make(map[string]string, len(d.Client.Headers))
	for k, v := range d.Client.Headers {
		headers[k] = v
	}
	return &httpc.Httpc{
		BaseURL:   d.BaseURL,
		Timeout:   d.Client.Timeout,
		Headers:   headers,
		TlsConfig: httpc.TLSConfig(d.Client.Insecure, d.Client.MinTLSVersion, d.Client.MaxTLSVersion),
	}
}

// LogOptions converts the logging section.
func (d *Doc) LogOptions() common.LogOptions {
	return common.LogOptions{
		Level:         d.Logging.Level,
		Format:        d.Logging.Format,
		Color:         d.Logging.Color,
		MaskSensitive: d.Logging.MaskSensitive,
		File: common.FileOutput{
			Path:       d.Logging.File,
			MaxSizeMB:  d.Logging.MaxSizeMB,
			MaxBackups: d.Logging.MaxBackups,
			MaxAgeDays: d.Logging.MaxAgeDays,
			Compress:   d.Logging.Compress,
		},
	}
}
