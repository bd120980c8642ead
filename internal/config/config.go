package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppName names the XDG config directory.
const AppName = "satori-balance"

// Config holds all configuration for the balance checker.
type Config struct {
	// Explorer endpoint and request shape
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
	Label     string `mapstructure:"label"`

	// Concurrency and retry policy
	Concurrency       int           `mapstructure:"concurrency"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	AttemptTimeout    time.Duration `mapstructure:"attempt_timeout"`
	RetryWait         time.Duration `mapstructure:"retry_wait"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`

	// Outputs. Empty optional paths disable that output.
	Output      string `mapstructure:"output"`
	Markdown    string `mapstructure:"markdown"`
	HistoryDB   string `mapstructure:"history_db"`
	MetricsFile string `mapstructure:"metrics_file"`

	// ClassifyRendered counts outcomes by re-parsing their rendered text
	// instead of by kind, matching totals of older reports.
	ClassifyRendered bool `mapstructure:"classify_rendered"`

	LogLevel string `mapstructure:"log_level"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"output":       "output",
	"concurrency":  "concurrency",
	"markdown":     "markdown",
	"history-db":   "history_db",
	"metrics-file": "metrics_file",
	"log-level":    "log_level",
}

// ConfigDir returns the XDG config directory, e.g. ~/.config/satori-balance.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Load reads configuration from defaults, an optional config file,
// environment variables and command-line flags, in increasing precedence.
//
// If configFile is empty, config.yaml is searched in the working directory
// and in ConfigDir; a missing file is not an error.
//
// Environment variables use the SATORI_ prefix, for example:
//   - SATORI_BASE_URL
//   - SATORI_CONCURRENCY
//   - SATORI_ATTEMPT_TIMEOUT (Go duration, e.g. "30s")
//   - SATORI_OUTPUT
//
// Only flags that were explicitly set override other sources.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Set up environment variable support
	v.SetEnvPrefix("SATORI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(ConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://evr.cryptoscope.io")
	v.SetDefault("user_agent", "")
	v.SetDefault("label", "SATORI")
	v.SetDefault("concurrency", 10)
	v.SetDefault("max_attempts", 3)
	v.SetDefault("attempt_timeout", 30*time.Second)
	v.SetDefault("retry_wait", 1*time.Second)
	v.SetDefault("requests_per_second", 0.0)
	v.SetDefault("output", "satori_balances.csv")
	v.SetDefault("markdown", "")
	v.SetDefault("history_db", "")
	v.SetDefault("metrics_file", "")
	v.SetDefault("classify_rendered", false)
	v.SetDefault("log_level", "info")
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var problems []string

	if c.BaseURL == "" {
		problems = append(problems, "base_url must not be empty")
	}
	if c.Output == "" {
		problems = append(problems, "output must not be empty")
	}
	if c.Concurrency <= 0 {
		problems = append(problems, "concurrency must be positive")
	}
	if c.MaxAttempts <= 0 {
		problems = append(problems, "max_attempts must be positive")
	}
	if c.AttemptTimeout <= 0 {
		problems = append(problems, "attempt_timeout must be positive")
	}
	if c.RetryWait < 0 {
		problems = append(problems, "retry_wait must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		problems = append(problems, "requests_per_second must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}

	return nil
}
