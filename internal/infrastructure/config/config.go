package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all desktop daemon configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Remote    RemoteConfig    `yaml:"remote" toml:"remote"`
	Realtime  RealtimeConfig  `yaml:"realtime" toml:"realtime"`
	Progress  ProgressConfig  `yaml:"progress" toml:"progress"`
	Archive   ArchiveConfig   `yaml:"archive" toml:"archive"`
	Desktop   DesktopConfig   `yaml:"desktop" toml:"desktop"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds local API server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" yaml:"port" toml:"port"`
	Host string `envconfig:"HOST" default:"127.0.0.1" yaml:"host" toml:"host"`
}

// RemoteConfig holds cloud filesystem API configuration.
type RemoteConfig struct {
	Origin          string   `envconfig:"API_ORIGIN" default:"http://api.localhost:4100" yaml:"origin" toml:"origin"`
	Timeout         Duration `envconfig:"API_TIMEOUT" default:"30s" yaml:"timeout" toml:"timeout"`
	RateLimit       float64  `envconfig:"API_RATE_LIMIT" default:"20" yaml:"rate_limit" toml:"rate_limit"`
	Burst           int      `envconfig:"API_BURST" default:"40" yaml:"burst" toml:"burst"`
	BreakerFailures uint32   `envconfig:"API_BREAKER_FAILURES" default:"5" yaml:"breaker_failures" toml:"breaker_failures"`
	BreakerTimeout  Duration `envconfig:"API_BREAKER_TIMEOUT" default:"30s" yaml:"breaker_timeout" toml:"breaker_timeout"`
}

// RealtimeConfig holds realtime event channel configuration.
type RealtimeConfig struct {
	Origin       string   `envconfig:"GUI_ORIGIN" default:"ws://api.localhost:4100" yaml:"origin" toml:"origin"`
	Path         string   `envconfig:"REALTIME_PATH" default:"/socket" yaml:"path" toml:"path"`
	ReconnectMin Duration `envconfig:"RECONNECT_MIN" default:"500ms" yaml:"reconnect_min" toml:"reconnect_min"`
	ReconnectMax Duration `envconfig:"RECONNECT_MAX" default:"30s" yaml:"reconnect_max" toml:"reconnect_max"`
}

// ProgressConfig holds progress surface timing.
type ProgressConfig struct {
	SingleThreshold Duration `envconfig:"PROGRESS_SINGLE_THRESHOLD" default:"500ms" yaml:"single_threshold" toml:"single_threshold"`
	BatchThreshold  Duration `envconfig:"PROGRESS_BATCH_THRESHOLD" default:"2s" yaml:"batch_threshold" toml:"batch_threshold"`
	MinDwell        Duration `envconfig:"PROGRESS_MIN_DWELL" default:"1s" yaml:"min_dwell" toml:"min_dwell"`
}

// ArchiveConfig holds zip configuration.
type ArchiveConfig struct {
	Exclude []string `envconfig:"ZIP_EXCLUDE" default:".DS_Store,**/.DS_Store,**/Thumbs.db" yaml:"exclude" toml:"exclude"`
}

// DesktopConfig holds desktop layout configuration.
type DesktopConfig struct {
	TrashName     string `envconfig:"TRASH_DIR_NAME" default:"Trash" yaml:"trash_name" toml:"trash_name"`
	MaxNameLength int    `envconfig:"MAX_ITEM_NAME_LENGTH" default:"767" yaml:"max_name_length" toml:"max_name_length"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// RateLimitConfig holds local API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// Duration is a time.Duration that decodes from strings such as "500ms"
// in environment variables, YAML and TOML alike.
type Duration time.Duration

// Std returns the standard library duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from environment variables and then
// overlays the YAML or TOML file at path. Keys present in the file win.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "127.0.0.1",
		},
		Remote: RemoteConfig{
			Origin:          "http://api.localhost:4100",
			Timeout:         Duration(30 * time.Second),
			RateLimit:       20,
			Burst:           40,
			BreakerFailures: 5,
			BreakerTimeout:  Duration(30 * time.Second),
		},
		Realtime: RealtimeConfig{
			Origin:       "ws://api.localhost:4100",
			Path:         "/socket",
			ReconnectMin: Duration(500 * time.Millisecond),
			ReconnectMax: Duration(30 * time.Second),
		},
		Progress: ProgressConfig{
			SingleThreshold: Duration(500 * time.Millisecond),
			BatchThreshold:  Duration(2 * time.Second),
			MinDwell:        Duration(time.Second),
		},
		Archive: ArchiveConfig{
			Exclude: []string{".DS_Store", "**/.DS_Store", "**/Thumbs.db"},
		},
		Desktop: DesktopConfig{
			TrashName:     "Trash",
			MaxNameLength: 767,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
