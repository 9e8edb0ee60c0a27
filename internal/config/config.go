package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// envPrefix prefixes every environment override
const envPrefix = "THOUGHTBOARD_"

// Config holds all application configuration
type Config struct {
	// Upstream thoughts API
	APIBaseURL     string
	RequestTimeout time.Duration

	// Dashboard timers
	PollInterval    time.Duration
	RefreshInterval time.Duration

	// Dashboard server
	Addr string

	// Dev upstream
	DBPath     string
	SeedPrompt string

	Debug bool
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		APIBaseURL:      "http://localhost:8000",
		RequestTimeout:  0,
		PollInterval:    30 * time.Second,
		RefreshInterval: 10 * time.Minute,
		Addr:            ":8080",
		DBPath:          filepath.Join(homeDir(), ".thoughtboard", "thoughts.db"),
		SeedPrompt:      "思考とは何だろうか",
		Debug:           true,
	}
}

// fileConfig mirrors Config with optional fields so a file only overrides
// what it sets. Durations are written as strings like "30s".
type fileConfig struct {
	APIBaseURL      *string `toml:"api_base_url"`
	RequestTimeout  *string `toml:"request_timeout"`
	PollInterval    *string `toml:"poll_interval"`
	RefreshInterval *string `toml:"refresh_interval"`
	Addr            *string `toml:"addr"`
	DBPath          *string `toml:"db_path"`
	SeedPrompt      *string `toml:"seed_prompt"`
	Debug           *bool   `toml:"debug"`
}

// Load builds the configuration: defaults, then the TOML file at path (if
// path is empty a missing file is fine), then .env and THOUGHTBOARD_*
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	} else if p := DefaultPath(); p != "" {
		if err := cfg.loadFile(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath is where Load looks for a config file when none is given
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "thoughtboard", "config.toml")
	}
	return ""
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.APIBaseURL, fc.APIBaseURL)
	setString(&c.Addr, fc.Addr)
	setString(&c.DBPath, fc.DBPath)
	setString(&c.SeedPrompt, fc.SeedPrompt)
	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"request_timeout", fc.RequestTimeout, &c.RequestTimeout},
		{"poll_interval", fc.PollInterval, &c.PollInterval},
		{"refresh_interval", fc.RefreshInterval, &c.RefreshInterval},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("parse config %s: %s: %w", path, d.key, err)
		}
		*d.dst = v
	}

	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(envPrefix + "API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := getenv(envPrefix + "ADDR"); v != "" {
		c.Addr = v
	}
	if v := getenv(envPrefix + "DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := getenv(envPrefix + "SEED_PROMPT"); v != "" {
		c.SeedPrompt = v
	}
	if v := getenv(envPrefix + "DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDEBUG: %w", envPrefix, err)
		}
		c.Debug = b
	}

	durations := map[string]*time.Duration{
		"REQUEST_TIMEOUT":  &c.RequestTimeout,
		"POLL_INTERVAL":    &c.PollInterval,
		"REFRESH_INTERVAL": &c.RefreshInterval,
	}
	for key, dst := range durations {
		v := getenv(envPrefix + key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = d
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("api base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api base URL must be http or https, got %q", c.APIBaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("api base URL has no host: %q", c.APIBaseURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	if c.Addr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	return nil
}

// Print writes the configuration as TOML
func Print(c *Config, w io.Writer) error {
	fc := struct {
		APIBaseURL      string `toml:"api_base_url"`
		RequestTimeout  string `toml:"request_timeout"`
		PollInterval    string `toml:"poll_interval"`
		RefreshInterval string `toml:"refresh_interval"`
		Addr            string `toml:"addr"`
		DBPath          string `toml:"db_path"`
		SeedPrompt      string `toml:"seed_prompt"`
		Debug           bool   `toml:"debug"`
	}{
		APIBaseURL:      c.APIBaseURL,
		RequestTimeout:  c.RequestTimeout.String(),
		PollInterval:    c.PollInterval.String(),
		RefreshInterval: c.RefreshInterval.String(),
		Addr:            c.Addr,
		DBPath:          c.DBPath,
		SeedPrompt:      c.SeedPrompt,
		Debug:           c.Debug,
	}
	return toml.NewEncoder(w).Encode(fc)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
