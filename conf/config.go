package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/zeptools/gw-multids/datasource"
	"github.com/zeptools/gw-multids/db/session"
	"github.com/zeptools/gw-multids/db/sqldb"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ParseEnv
const EnvPrefix = "GW_MULTIDS_"

// DefaultPath is the config file location relative to the app root
var DefaultPath = filepath.Join("config", "datasources.yaml")

var ErrNilConfig = errors.New("nil config")

// DataSourceConfig is the datasource section as written in the file.
// Backend entries are only read from the file.
type DataSourceConfig struct {
	// Mode is static or dynamic.
	Mode string `env:"MODE" yaml:"mode"`

	// DefaultName is the pool used when no routing key is set. Required in dynamic mode.
	DefaultName string `env:"DEFAULT_NAME" yaml:"default_name"`

	// UnknownKey is fail or fallback.
	UnknownKey string `env:"UNKNOWN_KEY" yaml:"unknown_key"`

	// Multi maps logical names to backend settings.
	Multi map[string]*sqldb.Conf `yaml:"multi"`
}

type SessionConfig struct {
	session.Settings `yaml:",inline"`

	// Overrides change the shared settings for single backends.
	Overrides map[string]session.Override `yaml:"overrides"`
}

// LogConfig is the logger configuration.
type LogConfig struct {
	// Format is the format of the logs: text, json or logfmt.
	Format string `env:"FORMAT" yaml:"format"`

	// Level is one of debug, info, warn, error.
	Level string `env:"LEVEL" yaml:"level"`

	// TimeFormat is the time format for the logs.
	TimeFormat string `env:"TIME_FORMAT" yaml:"time_format"`

	// Path is the path to the log file. Empty logs to stderr.
	Path string `env:"PATH" yaml:"path"`
}

type MetricsConfig struct {
	Enabled bool `env:"ENABLED" yaml:"enabled"`
}

type Config struct {
	AppName string `env:"APP_NAME" yaml:"app_name"`

	// Listen is the HTTP listen address of the serve command.
	Listen string `env:"LISTEN" yaml:"listen"`

	// ShutdownTimeout bounds how long in-flight requests get on shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`

	DataSource DataSourceConfig `envPrefix:"DATASOURCE_" yaml:"datasource"`
	Session    SessionConfig    `envPrefix:"SESSION_" yaml:"session"`
	Log        LogConfig        `envPrefix:"LOG_" yaml:"log"`
	Metrics    MetricsConfig    `envPrefix:"METRICS_" yaml:"metrics"`

	// Path is the file the config was read from.
	Path string `env:"CONFIG_PATH" yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		AppName:         "gw-multids",
		Listen:          ":8080",
		ShutdownTimeout: 10 * time.Second,
		DataSource: DataSourceConfig{
			Mode:       string(datasource.Static),
			UnknownKey: string(datasource.PolicyFail),
		},
		Session: SessionConfig{
			Settings: session.Settings{NameMapper: session.MapperSnake},
		},
		Log: LogConfig{
			Format:     "text",
			Level:      "info",
			TimeFormat: time.DateTime,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// parseFile decodes a YAML file into cfg. Unknown and duplicate keys are errors.
func parseFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close() // nolint: errcheck

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// ParseFile reads c.Path.
func (c *Config) ParseFile() error {
	return parseFile(c, c.Path)
}

// ParseEnv overrides c with GW_MULTIDS_* environment variables.
func (c *Config) ParseEnv() error {
	if err := env.ParseWithOptions(c, env.Options{
		Prefix: EnvPrefix,
	}); err != nil {
		return fmt.Errorf("parse environment variables: %w", err)
	}
	return nil
}

// Load reads the file at path over the defaults, applies the environment and validates the result.
// GW_MULTIDS_CONFIG_PATH, when set, wins over path.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Path = path
	if p := os.Getenv(EnvPrefix + "CONFIG_PATH"); p != "" {
		cfg.Path = p
	}
	if err := cfg.ParseFile(); err != nil {
		return nil, err
	}
	if err := cfg.ParseEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parts of the config that can be checked without building anything.
// Name and type checks of the datasources are left to datasource.Registry.Register.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if _, err := c.ToDataSourceConfig(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
		}
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("negative shutdown timeout %s", c.ShutdownTimeout)
	}
	return nil
}

// ToDataSourceConfig converts the file sections into a datasource.Config.
func (c *Config) ToDataSourceConfig() (datasource.Config, error) {
	mode, err := datasource.ParseMode(c.DataSource.Mode)
	if err != nil {
		return datasource.Config{}, err
	}
	policy, err := datasource.ParsePolicy(c.DataSource.UnknownKey)
	if err != nil {
		return datasource.Config{}, err
	}
	if err := c.Session.Validate(); err != nil {
		return datasource.Config{}, err
	}
	out := datasource.Config{
		Mode:        mode,
		DefaultName: datasource.Name(c.DataSource.DefaultName),
		UnknownKey:  policy,
		Multi:       make(map[datasource.Name]*sqldb.Conf, len(c.DataSource.Multi)),
		Session:     c.Session.Settings,
	}
	for name, conf := range c.DataSource.Multi {
		out.Multi[datasource.Name(name)] = conf
	}
	if len(c.Session.Overrides) > 0 {
		out.SessionOverrides = make(map[datasource.Name]session.Override, len(c.Session.Overrides))
		for name, o := range c.Session.Overrides {
			out.SessionOverrides[datasource.Name(name)] = o
		}
	}
	return out, nil
}

// Environ returns the scalar settings as environment variables.
func (c *Config) Environ() []string {
	if c == nil {
		return nil
	}
	return []string{
		fmt.Sprintf("%sAPP_NAME=%s", EnvPrefix, c.AppName),
		fmt.Sprintf("%sLISTEN=%s", EnvPrefix, c.Listen),
		fmt.Sprintf("%sSHUTDOWN_TIMEOUT=%s", EnvPrefix, c.ShutdownTimeout),
		fmt.Sprintf("%sCONFIG_PATH=%s", EnvPrefix, c.Path),
		fmt.Sprintf("%sDATASOURCE_MODE=%s", EnvPrefix, c.DataSource.Mode),
		fmt.Sprintf("%sDATASOURCE_DEFAULT_NAME=%s", EnvPrefix, c.DataSource.DefaultName),
		fmt.Sprintf("%sDATASOURCE_UNKNOWN_KEY=%s", EnvPrefix, c.DataSource.UnknownKey),
		fmt.Sprintf("%sSESSION_NAME_MAPPER=%s", EnvPrefix, c.Session.NameMapper),
		fmt.Sprintf("%sSESSION_TRACE=%t", EnvPrefix, c.Session.Trace),
		fmt.Sprintf("%sLOG_FORMAT=%s", EnvPrefix, c.Log.Format),
		fmt.Sprintf("%sLOG_LEVEL=%s", EnvPrefix, c.Log.Level),
		fmt.Sprintf("%sLOG_TIME_FORMAT=%s", EnvPrefix, c.Log.TimeFormat),
		fmt.Sprintf("%sLOG_PATH=%s", EnvPrefix, c.Log.Path),
		fmt.Sprintf("%sMETRICS_ENABLED=%t", EnvPrefix, c.Metrics.Enabled),
	}
}
