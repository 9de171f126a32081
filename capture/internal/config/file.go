// Package config handles capture daemon configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/capsync/event"
)

// Config is the top-level capture configuration.
type Config struct {
	Browser  BrowserConfig   `yaml:"browser"`
	Server   ServerConfig    `yaml:"server"`
	Store    StoreConfig     `yaml:"store"`
	Surfaces []SurfaceConfig `yaml:"surfaces"`
	Sinks    []SinkConfig    `yaml:"sinks"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	Remote   string `yaml:"remote"`
	Headless bool   `yaml:"headless"`
	Stealth  bool   `yaml:"stealth"`
}

// ServerConfig locates the automation server.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
}

// StoreConfig locates the local state database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// SurfaceConfig defines one observed surface stream.
type SurfaceConfig struct {
	Kind     string        `yaml:"kind"` // email_compose | email_read | article_read
	URL      string        `yaml:"url"`
	Root     string        `yaml:"root"`     // mutation root selector; empty = document body
	Cooldown time.Duration `yaml:"cooldown"` // ignored for article_read
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | server
	URL  string `yaml:"url"`  // for server; overrides server.base_url
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate rejects unknown surface kinds and surfaces without a URL.
func (c *Config) Validate() error {
	for i, s := range c.Surfaces {
		switch event.Kind(s.Kind) {
		case event.KindEmailCompose, event.KindEmailRead, event.KindArticle:
		default:
			return fmt.Errorf("config: surface %d: unknown kind %q", i, s.Kind)
		}
		if s.URL == "" {
			return fmt.Errorf("config: surface %d: url is required", i)
		}
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout", "server":
		default:
			return fmt.Errorf("config: sink %d: unknown type %q", i, s.Type)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8000"
	}
	if c.Store.Path == "" {
		c.Store.Path = "capsync.db"
	}
	for i := range c.Surfaces {
		if c.Surfaces[i].Cooldown <= 0 {
			switch event.Kind(c.Surfaces[i].Kind) {
			case event.KindEmailCompose:
				c.Surfaces[i].Cooldown = 2 * time.Second
			case event.KindEmailRead:
				c.Surfaces[i].Cooldown = 1 * time.Second
			}
		}
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "server"}}
	}
}
