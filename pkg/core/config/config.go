// Package config loads process settings from a YAML file, .env and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"ratio_screener/pkg/core/ingest"
)

// DefaultPath is read when no explicit file is given. Its absence is fine.
const DefaultPath = "config/ratio_screener.yaml"

// ErrMissingCredentials is returned by RequireSession.
var ErrMissingCredentials = ingest.ErrMissingCredentials

type Server struct {
	Addr string `yaml:"addr" validate:"required"`
}

type Screener struct {
	BaseURL     string        `yaml:"base_url" validate:"required,url"`
	UserAgent   string        `yaml:"user_agent" validate:"required"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	MinInterval time.Duration `yaml:"min_interval" validate:"gte=0"`
}

type Session struct {
	SessionID string `yaml:"session_id"`
	CSRFToken string `yaml:"csrf_token"`
}

type Pipeline struct {
	Workers int `yaml:"workers" validate:"gte=1,lte=64"`
}

type Cache struct {
	RedisAddr string        `yaml:"redis_addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db" validate:"gte=0"`
	TTL       time.Duration `yaml:"ttl" validate:"gte=0"`
}

type Database struct {
	URL string `yaml:"url"`
}

type Logging struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// Config is the full process configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Screener Screener `yaml:"screener"`
	Session  Session  `yaml:"session"`
	Pipeline Pipeline `yaml:"pipeline"`
	Cache    Cache    `yaml:"cache"`
	Database Database `yaml:"database"`
	Logging  Logging  `yaml:"logging"`
}

// NewDefaultConfig returns the built-in settings.
func NewDefaultConfig() *Config {
	client := ingest.DefaultClientConfig()
	return &Config{
		Server: Server{Addr: ":8080"},
		Screener: Screener{
			BaseURL:     client.BaseURL,
			UserAgent:   client.UserAgent,
			Timeout:     client.Timeout,
			MinInterval: client.MinInterval,
		},
		Pipeline: Pipeline{Workers: 4},
		Cache:    Cache{TTL: client.CacheTTL},
		Logging:  Logging{Level: "info", Format: "console"},
	}
}

// Load builds the configuration. An empty path means DefaultPath; a missing
// file at the default path is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := NewDefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("SESSION_ID", &c.Session.SessionID)
	setString("CSRF_TOKEN", &c.Session.CSRFToken)
	setString("DATABASE_URL", &c.Database.URL)
	setString("REDIS_ADDR", &c.Cache.RedisAddr)
	setString("REDIS_PASSWORD", &c.Cache.Password)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Server.Addr = ":" + port
	}
	if workers := os.Getenv("WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("invalid WORKERS %q: %w", workers, err)
		}
		c.Pipeline.Workers = n
	}
	return nil
}

// Validate checks struct constraints. Session cookies are not required here;
// binaries that hit the network call RequireSession.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RequireSession returns the session cookies or ErrMissingCredentials.
func (c *Config) RequireSession() (ingest.Credentials, error) {
	creds := ingest.Credentials{SessionID: c.Session.SessionID, CSRFToken: c.Session.CSRFToken}
	if err := creds.Validate(); err != nil {
		return ingest.Credentials{}, err
	}
	return creds, nil
}

// ClientConfig maps the screener section onto the HTTP client settings.
func (c *Config) ClientConfig() ingest.ClientConfig {
	return ingest.ClientConfig{
		BaseURL:     c.Screener.BaseURL,
		UserAgent:   c.Screener.UserAgent,
		Timeout:     c.Screener.Timeout,
		MinInterval: c.Screener.MinInterval,
		CacheTTL:    c.Cache.TTL,
	}
}
