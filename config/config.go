/*
Package config loads the consorcio runtime configuration.

SOURCES (later wins):
  1. Built-in defaults (see setDefaults)
  2. YAML file: the --config path, or ./consorcio.yml when present
  3. Environment: CONSORCIO_<SECTION>_<KEY>, e.g. CONSORCIO_DATABASE_PATH
  4. CLI flag overrides, applied by cmd/consorcio after Load

EXAMPLE consorcio.yml:

  server:
    address: ":8080"
    allowedOrigins: ["http://localhost:3000"]
  database:
    path: ./data/consorcio.db
  logging:
    level: info
    format: json
  refresher:
    enabled: true
    interval: 1h
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONSORCIO"

// Configuration is the full runtime configuration.
type Configuration struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Refresher RefresherConfig `mapstructure:"refresher"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	AllowedOrigins []string      `mapstructure:"allowedOrigins"`
}

// DatabaseConfig configures the SQLite store. ":memory:" keeps everything
// in process.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, console
	OutputFile string `mapstructure:"outputFile"`
}

// RefresherConfig configures the background job that refreshes cached
// free-bid corrections.
type RefresherConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("database.path", "consorcio.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("refresher.enabled", true)
	v.SetDefault("refresher.interval", time.Hour)
}

// Load reads the configuration. An empty path looks for an optional
// consorcio.yml in the working directory; an explicit path must exist.
func Load(path string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yml")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("consorcio")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var conf Configuration
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate checks values that defaults can't make safe.
func (c Configuration) Validate() error {
	var errs []error
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: invalid level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format: invalid format %q", c.Logging.Format))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path: is required"))
	}
	if c.Refresher.Enabled && c.Refresher.Interval <= 0 {
		errs = append(errs, errors.New("refresher.interval: must be positive when enabled"))
	}
	return errors.Join(errs...)
}
