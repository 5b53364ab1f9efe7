package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// Config represents one tool server's configuration.
type Config struct {
	Identity string  `json:"identity"`
	Server   Server  `json:"server"`
	Logging  Logging `json:"logging"`
}

// Server represents the bind configuration.
type Server struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Logging represents logging configuration.
type Logging struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Path   string `json:"path"`
}

// Default ports mirror the fleet the system ships with.
var defaultPorts = map[string]int{
	"weather":  8001,
	"database": 8002,
	"meeting":  8004,
}

// NewConfig creates a Config with default values for the named server.
func NewConfig(identity string) *Config {
	port, ok := defaultPorts[identity]
	if !ok {
		port = 8000
	}
	return &Config{
		Identity: identity,
		Server: Server{
			Host: "127.0.0.1",
			Port: port,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration for identity: defaults, then the optional
// JSON file at path, then environment overrides (highest priority).
func Load(identity, path string) (*Config, error) {
	cfg := NewConfig(identity)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("TOOLFLEET_HOST"); host != "" {
		cfg.Server.Host = host
	}

	if portStr := os.Getenv("TOOLFLEET_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Server.Port = port
		} else {
			log.Printf("warning: ignoring invalid TOOLFLEET_PORT value %q: %v", portStr, err)
		}
	}

	if level := os.Getenv("TOOLFLEET_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if format := os.Getenv("TOOLFLEET_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if path := os.Getenv("TOOLFLEET_LOG_PATH"); path != "" {
		cfg.Logging.Path = path
	}
}

// Normalize canonicalizes config values so validation and runtime logic
// operate on stable representations.
func (c *Config) Normalize() {
	c.Identity = strings.TrimSpace(c.Identity)
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Path = strings.TrimSpace(c.Logging.Path)
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Identity == "" {
		return errors.New("identity cannot be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid port number")
	}

	if c.Server.Host == "" {
		return errors.New("host cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}

	return nil
}

// Addr returns the host:port bind address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
