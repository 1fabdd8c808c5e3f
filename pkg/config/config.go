// Package config loads service settings from defaults and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "5s" parse directly.
type Duration time.Duration

// UnmarshalYAML accepts Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to the standard type for http.Server and friends.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Store bounds item fields and pagination.
type Store struct {
	MaxTitleLength       int `yaml:"max_title_length"`
	MaxDescriptionLength int `yaml:"max_description_length"`
	DefaultPageLimit     int `yaml:"default_page_limit"`
	MaxPageLimit         int `yaml:"max_page_limit"`
}

// Config captures everything the process needs to serve requests.
type Config struct {
	Listen        string   `yaml:"listen"`
	TLSCert       string   `yaml:"tls_cert"`
	TLSKey        string   `yaml:"tls_key"`
	ReadTimeout   Duration `yaml:"read_timeout"`
	WriteTimeout  Duration `yaml:"write_timeout"`
	IdleTimeout   Duration `yaml:"idle_timeout"`
	ShutdownGrace Duration `yaml:"shutdown_grace"`
	CORSOrigins   []string `yaml:"cors_origins"`
	Store         Store    `yaml:"store"`
}

// Default returns the configuration the service runs with when no file is given.
func Default() Config {
	return Config{
		Listen:        ":8080",
		ReadTimeout:   Duration(5 * time.Second),
		WriteTimeout:  Duration(10 * time.Second),
		IdleTimeout:   Duration(60 * time.Second),
		ShutdownGrace: Duration(5 * time.Second),
		Store: Store{
			MaxTitleLength:       500,
			MaxDescriptionLength: 2000,
			DefaultPageLimit:     10,
			MaxPageLimit:         100,
		},
	}
}

// Load merges the YAML file at path over the defaults. An empty path yields
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address must not be empty")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("tls_cert and tls_key must be set together")
	}
	if c.Store.MaxTitleLength < 1 {
		return errors.New("max_title_length must be positive")
	}
	if c.Store.MaxDescriptionLength < 1 {
		return errors.New("max_description_length must be positive")
	}
	if c.Store.DefaultPageLimit < 1 || c.Store.MaxPageLimit < 1 {
		return errors.New("page limits must be positive")
	}
	if c.Store.DefaultPageLimit > c.Store.MaxPageLimit {
		return errors.New("default_page_limit must not exceed max_page_limit")
	}
	return nil
}
