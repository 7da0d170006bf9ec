package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds settings shared by the monitor and the dashboard. Values come from the
// environment, optionally seeded by an app.env file.
type Config struct {
	Port              string        `mapstructure:"PORT"`
	BackendURL        string        `mapstructure:"BACKEND_URL"`
	CORSOrigins       string        `mapstructure:"CORS_ORIGINS"`
	ScanInterval      time.Duration `mapstructure:"SCAN_INTERVAL"`
	SourceDelay       time.Duration `mapstructure:"SOURCE_DELAY"`
	RefreshResetDelay time.Duration `mapstructure:"REFRESH_RESET_DELAY"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	SourcesFile       string        `mapstructure:"SOURCES_FILE"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
}

var defaults = map[string]any{
	"PORT":                "5000",
	"BACKEND_URL":         "http://localhost:5000",
	"CORS_ORIGINS":        "*",
	"SCAN_INTERVAL":       "6h",
	"SOURCE_DELAY":        "2s",
	"REFRESH_RESET_DELAY": "2s",
	"REQUEST_TIMEOUT":     "30s",
	"SOURCES_FILE":        "",
	"LOG_LEVEL":           "info",
}

// Load reads app.env from path when present, then lets environment variables override it.
// defaultPort replaces the PORT default so each binary can listen somewhere sensible.
func Load(path, defaultPort string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if defaultPort != "" {
		v.SetDefault("PORT", defaultPort)
	}

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.ScanInterval <= 0 {
		return nil, fmt.Errorf("SCAN_INTERVAL must be positive, got %s", cfg.ScanInterval)
	}
	return &cfg, nil
}

// AllowedOrigins splits CORS_ORIGINS into trimmed non-empty origins.
func (c *Config) AllowedOrigins() []string {
	var result []string
	for _, part := range strings.Split(c.CORSOrigins, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return []string{"*"}
	}
	return result
}

// Addr is the listen address for echo.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
