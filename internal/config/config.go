// Package config loads server settings from defaults, an optional YAML file
// and ARZENAL_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// BootstrapConfig names the admin account created on first run.
type BootstrapConfig struct {
	Admin string `yaml:"admin"`
}

// environment mirrors the overridable settings. Zero values mean unset.
type environment struct {
	Addr        string        `env:"ARZENAL_ADDR"`
	DB          string        `env:"ARZENAL_DB"`
	LogLevel    string        `env:"ARZENAL_LOG_LEVEL"`
	LogFormat   string        `env:"ARZENAL_LOG_FORMAT"`
	LogFile     string        `env:"ARZENAL_LOG_FILE"`
	Admin       string        `env:"ARZENAL_ADMIN"`
	TokenTTL    time.Duration `env:"ARZENAL_TOKEN_TTL"`
	CORSOrigins []string      `env:"ARZENAL_CORS_ORIGINS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database:  DatabaseConfig{Path: "arzenal.sqlite3"},
		Auth:      AuthConfig{TokenTTL: 7 * 24 * time.Hour},
		Log:       LogConfig{Level: "info", Format: "text"},
		Bootstrap: BootstrapConfig{Admin: "admin"},
	}
}

// Load builds the configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var env environment
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("decoding environment: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Server.Addr, env.Addr)
	set(&c.Database.Path, env.DB)
	set(&c.Log.Level, env.LogLevel)
	set(&c.Log.Format, env.LogFormat)
	set(&c.Log.File, env.LogFile)
	set(&c.Bootstrap.Admin, env.Admin)
	if env.TokenTTL > 0 {
		c.Auth.TokenTTL = env.TokenTTL
	}
	if len(env.CORSOrigins) > 0 {
		c.Server.CORSOrigins = env.CORSOrigins
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server address must not be empty")
	}
	if c.Database.Path == "" {
		return errors.New("database path must not be empty")
	}
	if c.Bootstrap.Admin == "" {
		return errors.New("bootstrap admin username must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return nil
}
