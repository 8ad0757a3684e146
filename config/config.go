// Package config manages application configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"kidtube/internal/retry"
	"kidtube/youtube/invidious"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "KIDTUBE_"

// Config holds all application configuration.
type Config struct {
	// APIKey is the platform Data API key. Without it the API provider is skipped.
	APIKey string `yaml:"api_key"`
	// APIRPS caps Data API requests per second (0 = unlimited).
	APIRPS float64 `yaml:"api_rps"`

	// OEmbedBaseURL serves /oembed.
	OEmbedBaseURL string `yaml:"oembed_base_url"`
	// ChannelPageBaseURL serves public channel pages.
	ChannelPageBaseURL string `yaml:"channel_page_base_url"`
	// FeedBaseURL serves the public channel Atom feeds.
	FeedBaseURL string `yaml:"feed_base_url"`

	// MirrorInstances is the mirror pool in rotation order.
	MirrorInstances []string `yaml:"mirror_instances"`
	// MirrorMaxFailures is the consecutive failure count that quarantines an instance.
	MirrorMaxFailures int `yaml:"mirror_max_failures"`
	// MirrorResetWindow is how long a quarantined instance stays out of rotation.
	MirrorResetWindow time.Duration `yaml:"mirror_reset_window"`
	// MirrorMaxAttempts is how many instances one lookup may try.
	MirrorMaxAttempts int `yaml:"mirror_max_attempts"`

	// HTTPTimeout bounds every outbound request.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	// MaxRetries is the maximum number of retries for failed operations
	MaxRetries int `yaml:"max_retries"`
	// InitialBackoff is the initial backoff duration for retries
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	// MaxBackoff is the maximum backoff duration for retries
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// BackoffMultiplier is the multiplier for exponential backoff (must be > 1)
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`

	// DatabasePath is the SQLite database file.
	DatabasePath string `yaml:"database_path"`
	// RedisURL enables the Redis listing cache when set.
	RedisURL string `yaml:"redis_url"`
	// CacheTTL is how long channel listings stay cached.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// CacheSize bounds the in-memory listing cache when Redis is not used.
	CacheSize int `yaml:"cache_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	r := retry.DefaultConfig()
	return &Config{
		APIRPS:             5,
		OEmbedBaseURL:      "https://www.youtube.com",
		ChannelPageBaseURL: "https://www.youtube.com",
		FeedBaseURL:        "https://www.youtube.com",
		MirrorInstances:    append([]string(nil), invidious.DefaultInstances...),
		MirrorMaxFailures:  2,
		MirrorResetWindow:  5 * time.Minute,
		MirrorMaxAttempts:  1,
		HTTPTimeout:        15 * time.Second,
		MaxRetries:         r.MaxRetries,
		InitialBackoff:     r.InitialBackoff,
		MaxBackoff:         r.MaxBackoff,
		BackoffMultiplier:  r.Multiplier,
		DatabasePath:       defaultDatabasePath(),
		CacheTTL:           30 * time.Minute,
		CacheSize:          256,
		LogLevel:           "info",
	}
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "kidtube.db"
	}
	return filepath.Join(home, ".local", "share", "kidtube", "kidtube.db")
}

// Loader reads configuration from a filesystem and an environment.
type Loader struct {
	// Fs is where the YAML and .env files are read from.
	Fs afero.Fs
	// Getenv reads the process environment.
	Getenv func(string) string
	// Paths are the YAML candidates; the first existing one is used.
	Paths []string
	// DotEnvPath is the .env file. Missing is fine.
	DotEnvPath string
}

// NewLoader returns a Loader over the OS filesystem and environment.
func NewLoader() *Loader {
	return &Loader{
		Fs:         afero.NewOsFs(),
		Getenv:     os.Getenv,
		Paths:      DefaultPaths(),
		DotEnvPath: ".env",
	}
}

// DefaultPaths returns kidtube.yml in the working directory and in
// ~/.config/kidtube.
func DefaultPaths() []string {
	paths := []string{"kidtube.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "kidtube", "kidtube.yml"))
	}
	return paths
}

// Load loads configuration from the OS environment and files.
// Priority: env vars > .env > config file > defaults
func Load() (*Config, error) {
	return NewLoader().Load()
}

// Load applies defaults, the config file, the .env file and the environment
// in that order, then validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := l.loadFromFile(cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	dotenv, err := l.readDotEnv()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", l.DotEnvPath, err)
	}

	lookup := func(name string) string {
		if l.Getenv != nil {
			if v := l.Getenv(EnvPrefix + name); v != "" {
				return v
			}
		}
		return dotenv[EnvPrefix+name]
	}
	if err := cfg.loadFromEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	for _, path := range l.Paths {
		data, err := afero.ReadFile(l.Fs, path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}

		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}
	return os.ErrNotExist
}

func (l *Loader) readDotEnv() (map[string]string, error) {
	if l.DotEnvPath == "" {
		return nil, nil
	}
	data, err := afero.ReadFile(l.Fs, l.DotEnvPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return godotenv.Parse(bytes.NewReader(data))
}

// loadFromEnv overrides config with KIDTUBE_* variables.
func (c *Config) loadFromEnv(lookup func(string) string) error {
	var errs []error
	str := func(name string, dst *string) {
		if v := lookup(name); v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v := lookup(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v := lookup(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v := lookup(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("API_KEY", &c.APIKey)
	float("API_RPS", &c.APIRPS)
	str("OEMBED_BASE_URL", &c.OEmbedBaseURL)
	str("CHANNEL_PAGE_BASE_URL", &c.ChannelPageBaseURL)
	str("FEED_BASE_URL", &c.FeedBaseURL)
	if v := lookup("MIRROR_INSTANCES"); v != "" {
		c.MirrorInstances = splitList(v)
	}
	integer("MIRROR_MAX_FAILURES", &c.MirrorMaxFailures)
	duration("MIRROR_RESET_WINDOW", &c.MirrorResetWindow)
	integer("MIRROR_MAX_ATTEMPTS", &c.MirrorMaxAttempts)
	duration("HTTP_TIMEOUT", &c.HTTPTimeout)
	integer("MAX_RETRIES", &c.MaxRetries)
	duration("INITIAL_BACKOFF", &c.InitialBackoff)
	duration("MAX_BACKOFF", &c.MaxBackoff)
	float("BACKOFF_MULTIPLIER", &c.BackoffMultiplier)
	str("DATABASE_PATH", &c.DatabasePath)
	str("REDIS_URL", &c.RedisURL)
	duration("CACHE_TTL", &c.CacheTTL)
	integer("CACHE_SIZE", &c.CacheSize)
	str("LOG_LEVEL", &c.LogLevel)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.APIRPS < 0 {
		return fmt.Errorf("api_rps must be non-negative")
	}
	if c.OEmbedBaseURL == "" || c.ChannelPageBaseURL == "" || c.FeedBaseURL == "" {
		return fmt.Errorf("oembed_base_url, channel_page_base_url and feed_base_url must be set")
	}
	if c.MirrorMaxFailures <= 0 {
		return fmt.Errorf("mirror_max_failures must be positive")
	}
	if c.MirrorResetWindow <= 0 {
		return fmt.Errorf("mirror_reset_window must be positive")
	}
	if c.MirrorMaxAttempts <= 0 {
		return fmt.Errorf("mirror_max_attempts must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff <= 0 {
		return fmt.Errorf("max_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must be set")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}

// Retry returns the retry settings for the API provider and the shared
// HTTP client.
func (c *Config) Retry() retry.Config {
	r := retry.DefaultConfig()
	r.MaxRetries = c.MaxRetries
	r.InitialBackoff = c.InitialBackoff
	r.MaxBackoff = c.MaxBackoff
	r.Multiplier = c.BackoffMultiplier
	return r
}
