package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/livetemplate/chapterdeck/internal/pager"
)

// EnvPrefix is the prefix of environment variables that override config
// values. A double underscore separates nesting levels, so
// CHAPTERDECK_SERVER__PORT sets server.port.
const EnvPrefix = "CHAPTERDECK_"

// FileNames are the config files LoadFromDir looks for, in order.
var FileNames = []string{"chapterdeck.yaml", "chapterdeck.yml"}

// Config represents the chapterdeck configuration
type Config struct {
	Title       string         `yaml:"title" koanf:"title"`
	Description string         `yaml:"description" koanf:"description"`
	Server      ServerConfig   `yaml:"server" koanf:"server"`
	Pager       PagerConfig    `yaml:"pager" koanf:"pager"`
	Session     SessionConfig  `yaml:"session" koanf:"session"`
	Features    FeaturesConfig `yaml:"features" koanf:"features"`
	Cache       CacheConfig    `yaml:"cache" koanf:"cache"`
	Log         LogConfig      `yaml:"log" koanf:"log"`
	Ignore      []string       `yaml:"ignore" koanf:"ignore"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port      int             `yaml:"port" koanf:"port"`
	Host      string          `yaml:"host" koanf:"host"`
	Debug     bool            `yaml:"debug" koanf:"debug"`
	RateLimit RateLimitConfig `yaml:"rate_limit" koanf:"rate_limit"`
}

// RateLimitConfig throttles HTTP requests per client IP. A zero rate
// disables the limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" koanf:"requests_per_second"`
	Burst             int     `yaml:"burst" koanf:"burst"`
	MaxTrackedIPs     int     `yaml:"max_tracked_ips" koanf:"max_tracked_ips"` // default: 10000
}

// PagerConfig configures the chapter carousel: the indicator width used when
// the browser does not report a measured one, and the ordered breakpoint
// table that maps viewport widths to display limits.
type PagerConfig struct {
	ItemWidth    int                `yaml:"item_width" koanf:"item_width"`
	Breakpoints  []BreakpointConfig `yaml:"breakpoints" koanf:"breakpoints"`
	DefaultClass string             `yaml:"default_class" koanf:"default_class"`
	DefaultLimit int                `yaml:"default_limit" koanf:"default_limit"`
}

// BreakpointConfig is one row of the breakpoint table. Viewports narrower
// than Below pixels belong to Class and show DisplayLimit indicators.
type BreakpointConfig struct {
	Class        string `yaml:"class" koanf:"class"`
	Below        int    `yaml:"below" koanf:"below"`
	DisplayLimit int    `yaml:"display_limit" koanf:"display_limit"`
}

// SessionConfig throttles the events a single browser session may send.
type SessionConfig struct {
	EventsPerSecond float64 `yaml:"events_per_second" koanf:"events_per_second"` // default: 20
	Burst           int     `yaml:"burst" koanf:"burst"`                         // default: 40
}

// FeaturesConfig holds feature flags
type FeaturesConfig struct {
	HotReload bool `yaml:"hot_reload" koanf:"hot_reload"`
}

// CacheConfig configures the rendered page cache.
type CacheConfig struct {
	TTL string `yaml:"ttl" koanf:"ttl"` // e.g. "5m"; empty disables caching
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
}

// DefaultBreakpoints is the xs/sm table of the chapter pager.
func DefaultBreakpoints() []BreakpointConfig {
	return []BreakpointConfig{
		{Class: "xs", Below: 320, DisplayLimit: 1},
		{Class: "sm", Below: 480, DisplayLimit: 3},
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Title:       "Chapters",
		Description: "Chaptered articles",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Pager: PagerConfig{
			ItemWidth:    85,
			Breakpoints:  DefaultBreakpoints(),
			DefaultClass: "default",
			DefaultLimit: 5,
		},
		Session: SessionConfig{
			EventsPerSecond: 20,
			Burst:           40,
		},
		Features: FeaturesConfig{
			HotReload: true,
		},
		Cache: CacheConfig{
			TTL: "5m",
		},
		Log: LogConfig{
			Level: "info",
		},
		Ignore: []string{
			"drafts/**",
			"_*.md",
		},
	}
}

// Viewport converts the breakpoint table for the pager.
func (p PagerConfig) Viewport() pager.Viewport {
	vp := pager.Viewport{
		DefaultClass: p.DefaultClass,
		DefaultLimit: p.DefaultLimit,
	}
	for _, bp := range p.Breakpoints {
		vp.Breakpoints = append(vp.Breakpoints, pager.Breakpoint{
			Class:        bp.Class,
			Below:        bp.Below,
			DisplayLimit: bp.DisplayLimit,
		})
	}
	return vp
}

// IsEnabled returns true if HTTP requests should be rate limited
func (r RateLimitConfig) IsEnabled() bool {
	return r.RequestsPerSecond > 0
}

// GetBurst returns the per-IP burst size, at least 1
func (r RateLimitConfig) GetBurst() int {
	if r.Burst <= 0 {
		return max(1, int(r.RequestsPerSecond))
	}
	return r.Burst
}

// GetMaxTrackedIPs returns the number of client IPs the limiter remembers (default: 10000)
func (r RateLimitConfig) GetMaxTrackedIPs() int {
	if r.MaxTrackedIPs <= 0 {
		return 10000
	}
	return r.MaxTrackedIPs
}

// GetEventsPerSecond returns the per-session event rate (default: 20)
func (s SessionConfig) GetEventsPerSecond() float64 {
	if s.EventsPerSecond <= 0 {
		return 20
	}
	return s.EventsPerSecond
}

// GetBurst returns the per-session burst size (default: 40)
func (s SessionConfig) GetBurst() int {
	if s.Burst <= 0 {
		return 40
	}
	return s.Burst
}

// IsEnabled returns true if rendered pages should be cached
func (c CacheConfig) IsEnabled() bool {
	return c.GetTTL() > 0
}

// GetTTL returns the parsed cache TTL (0 if caching is disabled or invalid)
func (c CacheConfig) GetTTL() time.Duration {
	if c.TTL == "" {
		return 0
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be non-negative")
	}
	if c.Pager.ItemWidth <= 0 {
		return fmt.Errorf("pager.item_width must be positive, got %d", c.Pager.ItemWidth)
	}
	if err := c.Pager.Viewport().Validate(); err != nil {
		return fmt.Errorf("pager: %w", err)
	}
	if c.Session.EventsPerSecond < 0 {
		return fmt.Errorf("session.events_per_second must be non-negative")
	}
	if c.Session.Burst < 0 {
		return fmt.Errorf("session.burst must be non-negative")
	}
	if c.Cache.TTL != "" {
		if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
			return fmt.Errorf("cache.ttl: %w", err)
		}
	}
	return nil
}

// Load reads configuration from a YAML file and overlays CHAPTERDECK_*
// environment variables. A missing file yields the defaults plus the
// environment overrides.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	cfg := DefaultConfig()
	// A configured table replaces the defaults instead of merging row by row.
	if k.Exists("pager.breakpoints") {
		cfg.Pager.Breakpoints = nil
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// LoadFromDir looks for chapterdeck.yaml or chapterdeck.yml in dir.
// If none is found, returns the default configuration
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Load("")
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
