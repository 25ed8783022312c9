// Package config loads the server and CLI configuration from a YAML or TOML
// file. Zero values fall back to the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/jmcleod/mjuauth/cache"
	"github.com/jmcleod/mjuauth/service"
	"github.com/jmcleod/mjuauth/transport"
)

const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 8000
	DefaultMaxRedirects = 3
	DefaultWorkers      = 8
	DefaultMaxFailures  = 5
	DefaultFailWindow   = 10 * time.Minute
	DefaultLockout      = 15 * time.Minute
)

var ErrUnsupportedFormat = errors.New("config: unsupported file extension")

// Duration is a time.Duration read from strings such as "30m".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	Server    ServerConfig         `yaml:"server" toml:"server"`
	Cache     CacheConfig          `yaml:"cache" toml:"cache"`
	Timeouts  TimeoutConfig        `yaml:"timeouts" toml:"timeouts"`
	Login     LoginConfig          `yaml:"login" toml:"login"`
	RateLimit RateLimitConfig      `yaml:"rate_limit" toml:"rate_limit"`
	MSI       service.MSIEndpoints `yaml:"msi" toml:"msi"`
	// Services adds portals or overrides built-in ones by key.
	Services []service.Descriptor `yaml:"services" toml:"services"`
}

type ServerConfig struct {
	Host    string `yaml:"host" toml:"host"`
	Port    int    `yaml:"port" toml:"port"`
	Workers int    `yaml:"workers" toml:"workers"`
}

type CacheConfig struct {
	SessionTTL Duration `yaml:"session_ttl" toml:"session_ttl"`
	DataTTL    Duration `yaml:"data_ttl" toml:"data_ttl"`
}

type TimeoutConfig struct {
	Default    Duration `yaml:"default" toml:"default"`
	Login      Duration `yaml:"login" toml:"login"`
	PageAccess Duration `yaml:"page_access" toml:"page_access"`
}

type LoginConfig struct {
	MaxRedirects int `yaml:"max_redirects" toml:"max_redirects"`
}

// RateLimitConfig bounds repeated rejected logins per user.
type RateLimitConfig struct {
	MaxFailures int      `yaml:"max_failures" toml:"max_failures"`
	Window      Duration `yaml:"window" toml:"window"`
	Lockout     Duration `yaml:"lockout" toml:"lockout"`
}

// Default returns a configuration with every field set.
func Default() Config {
	t := transport.DefaultTimeouts()
	return Config{
		Server: ServerConfig{Host: DefaultHost, Port: DefaultPort, Workers: DefaultWorkers},
		Cache: CacheConfig{
			SessionTTL: Duration(cache.DefaultSessionTTL),
			DataTTL:    Duration(cache.DefaultDataTTL),
		},
		Timeouts: TimeoutConfig{
			Default:    Duration(t.Default),
			Login:      Duration(t.Login),
			PageAccess: Duration(t.PageAccess),
		},
		Login: LoginConfig{MaxRedirects: DefaultMaxRedirects},
		RateLimit: RateLimitConfig{
			MaxFailures: DefaultMaxFailures,
			Window:      Duration(DefaultFailWindow),
			Lockout:     Duration(DefaultLockout),
		},
		MSI: service.DefaultMSIEndpoints(),
	}
}

// Load reads path from fs. The format is chosen by extension: .yaml/.yml or
// .toml. An empty path yields Default().
func Load(fs afero.Fs, path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.Workers == 0 {
		c.Server.Workers = d.Server.Workers
	}
	if c.Cache.SessionTTL == 0 {
		c.Cache.SessionTTL = d.Cache.SessionTTL
	}
	if c.Cache.DataTTL == 0 {
		c.Cache.DataTTL = d.Cache.DataTTL
	}
	if c.Timeouts.Default == 0 {
		c.Timeouts.Default = d.Timeouts.Default
	}
	if c.Timeouts.Login == 0 {
		c.Timeouts.Login = d.Timeouts.Login
	}
	if c.Timeouts.PageAccess == 0 {
		c.Timeouts.PageAccess = d.Timeouts.PageAccess
	}
	if c.Login.MaxRedirects == 0 {
		c.Login.MaxRedirects = d.Login.MaxRedirects
	}
	if c.RateLimit.MaxFailures == 0 {
		c.RateLimit.MaxFailures = d.RateLimit.MaxFailures
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = d.RateLimit.Window
	}
	if c.RateLimit.Lockout == 0 {
		c.RateLimit.Lockout = d.RateLimit.Lockout
	}
	if c.MSI.Home == "" {
		c.MSI.Home = d.MSI.Home
	}
	if c.MSI.StudentCard == "" {
		c.MSI.StudentCard = d.MSI.StudentCard
	}
	if c.MSI.PasswordVerify == "" {
		c.MSI.PasswordVerify = d.MSI.PasswordVerify
	}
	if c.MSI.ChangeLog == "" {
		c.MSI.ChangeLog = d.MSI.ChangeLog
	}
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Server.Port)
	}
	if c.Server.Workers < 1 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Server.Workers)
	}
	if c.Login.MaxRedirects < 1 || c.Login.MaxRedirects > 10 {
		return fmt.Errorf("config: max_redirects must be within [1,10], got %d", c.Login.MaxRedirects)
	}
	for name, d := range map[string]Duration{
		"cache.session_ttl":    c.Cache.SessionTTL,
		"cache.data_ttl":       c.Cache.DataTTL,
		"timeouts.default":     c.Timeouts.Default,
		"timeouts.login":       c.Timeouts.Login,
		"timeouts.page_access": c.Timeouts.PageAccess,
		"rate_limit.window":    c.RateLimit.Window,
		"rate_limit.lockout":   c.RateLimit.Lockout,
	} {
		if d < 0 {
			return fmt.Errorf("config: %s must not be negative", name)
		}
	}
	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("config: services: %w", err)
	}
	return nil
}

// Addr is the listen address for the HTTP API.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c Config) TransportTimeouts() transport.Timeouts {
	return transport.Timeouts{
		Default:    c.Timeouts.Default.Std(),
		Login:      c.Timeouts.Login.Std(),
		PageAccess: c.Timeouts.PageAccess.Std(),
	}
}

// Registry is the built-in service table with Services applied on top.
func (c Config) Registry() (*service.Registry, error) {
	return service.Default().With(c.Services...)
}
