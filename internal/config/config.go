// Package config provides configuration management for toolshed using Viper
// for loading from files, environment variables and command-line flags.
//
// The configuration covers the HTTP server, the tiered response cache, the
// preference store and logging. Values are read from .toolshed.yml, then
// overridden by TOOLSHED_ prefixed environment variables and flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/conneroisu/toolshed/internal/logging"
	"github.com/conneroisu/toolshed/internal/validation"
)

// AppName is used for the data directory and the env prefix.
const AppName = "toolshed"

type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" mapstructure:"port"`
	Host            string        `yaml:"host" mapstructure:"host"`
	Environment     string        `yaml:"environment" mapstructure:"environment"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	StaticDir       string        `yaml:"static_dir" mapstructure:"static_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// CacheConfig controls the tiered response cache.
type CacheConfig struct {
	Enabled    bool     `yaml:"enabled" mapstructure:"enabled"`
	Version    string   `yaml:"version" mapstructure:"version"`
	ImageCap   int      `yaml:"image_cap" mapstructure:"image_cap"`
	RuntimeCap int      `yaml:"runtime_cap" mapstructure:"runtime_cap"`
	Precache   []string `yaml:"precache" mapstructure:"precache"`
}

// StorageConfig controls the preference store.
type StorageConfig struct {
	Path          string        `yaml:"path" mapstructure:"path"`
	HistoryLimit  int           `yaml:"history_limit" mapstructure:"history_limit"`
	Retention     time.Duration `yaml:"retention" mapstructure:"retention"`
	SweepSchedule string        `yaml:"sweep_schedule" mapstructure:"sweep_schedule"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GeneratorConfig seeds the random generators. Zero means time-based.
type GeneratorConfig struct {
	Seed int64 `yaml:"seed" mapstructure:"seed"`
}

// DefaultPrecache is the manifest stored at install time.
var DefaultPrecache = []string{"/", "/index.html", "/placeholder.svg", "/manifest.json"}

// DefaultDataDir returns the XDG data directory for toolshed.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "localhost",
			Environment:     "development",
			ShutdownTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Version:    "v1",
			ImageCap:   60,
			RuntimeCap: 50,
			Precache:   append([]string(nil), DefaultPrecache...),
		},
		Storage: StorageConfig{
			Path:          filepath.Join(DefaultDataDir(), AppName+".db"),
			HistoryLimit:  50,
			Retention:     30 * 24 * time.Hour,
			SweepSchedule: "@daily",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v on top of the defaults.
func LoadFrom(v *viper.Viper) (*Config, error) {
	config := Default()
	// Slices are decoded in place, so defaults are applied afterwards.
	config.Cache.Precache = nil
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}
	if !v.IsSet("cache.precache") {
		config.Cache.Precache = append([]string(nil), DefaultPrecache...)
	}

	// Flags bound as "log-level" live outside the log section.
	if v.IsSet("log-level") && v.GetString("log-level") != "" {
		config.Log.Level = v.GetString("log-level")
	}

	// Env overrides for slices arrive as a single comma separated string.
	config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins)
	config.Cache.Precache = splitList(config.Cache.Precache)

	if config.Storage.Path == "" {
		config.Storage.Path = filepath.Join(DefaultDataDir(), AppName+".db")
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LoggerConfig converts the log section into a logger configuration.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = c.Log.Format
	return lc
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateCacheConfig(&config.Cache); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := validateStorageConfig(&config.Storage); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	return nil
}

func validateServerConfig(config *ServerConfig) error {
	// Port 0 lets the system pick one, which tests rely on.
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if err := validation.ValidateHost(config.Host); err != nil {
		return err
	}

	for _, origin := range config.AllowedOrigins {
		if err := validation.ValidateOrigin(origin); err != nil {
			return fmt.Errorf("allowed_origins: %w", err)
		}
	}

	switch config.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("environment must be development or production, got %q", config.Environment)
	}

	if config.StaticDir != "" {
		info, err := os.Stat(config.StaticDir)
		if err != nil {
			return fmt.Errorf("static_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("static_dir %s is not a directory", config.StaticDir)
		}
	}

	if config.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must not be negative")
	}

	return nil
}

func validateCacheConfig(config *CacheConfig) error {
	if config.Version == "" || strings.ContainsAny(config.Version, " /") {
		return fmt.Errorf("version %q must be a non-empty token", config.Version)
	}
	if config.ImageCap <= 0 {
		return fmt.Errorf("image_cap must be positive, got %d", config.ImageCap)
	}
	if config.RuntimeCap <= 0 {
		return fmt.Errorf("runtime_cap must be positive, got %d", config.RuntimeCap)
	}
	for _, path := range config.Precache {
		if err := validation.ValidateSitePath(path); err != nil {
			return fmt.Errorf("precache entry: %w", err)
		}
	}

	return nil
}

func validateStorageConfig(config *StorageConfig) error {
	if config.HistoryLimit < 1 || config.HistoryLimit > 1000 {
		return fmt.Errorf("history_limit %d is not in valid range 1-1000", config.HistoryLimit)
	}
	if config.Retention < 0 {
		return fmt.Errorf("retention must not be negative")
	}
	if config.SweepSchedule != "" {
		if _, err := cron.ParseStandard(config.SweepSchedule); err != nil {
			return fmt.Errorf("sweep_schedule: %w", err)
		}
	}
	if config.Path != ":memory:" && strings.Contains(filepath.Clean(config.Path), "..") {
		return fmt.Errorf("path contains traversal: %s", config.Path)
	}

	return nil
}

func validateLogConfig(config *LogConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return err
	}
	switch config.Format {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("format must be text or json, got %q", config.Format)
	}
}
