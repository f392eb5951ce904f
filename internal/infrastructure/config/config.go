package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Catalog   CatalogConfig
	Launch    LaunchConfig
	Proxy     ProxyConfig
	Tunnel    TunnelConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"2345"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	// TrustedProxies lists the CIDRs whose forwarding headers are honored.
	// Empty trusts none and client addresses come from the socket.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
	CORSOrigins    []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// CatalogConfig locates the catalog and whitelist sources.
type CatalogConfig struct {
	// Path is a file path or an http(s) URL.
	Path          string `envconfig:"CATALOG_PATH" default:"data/apps.json"`
	WhitelistPath string `envconfig:"WHITELIST_PATH" default:"data/whitelist.json"`
	CacheMS       int    `envconfig:"CATALOG_CACHE_MS" default:"5000"`
}

// CacheTTL is the snapshot lifetime.
func (c CatalogConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheMS) * time.Millisecond
}

// LaunchConfig holds launch token settings.
type LaunchConfig struct {
	TTLMS         int           `envconfig:"LAUNCH_TTL_MS" default:"600000"`
	PurgeInterval time.Duration `envconfig:"LAUNCH_PURGE_INTERVAL" default:"60s"`
}

// TTL is the launch token lifetime.
func (c LaunchConfig) TTL() time.Duration {
	return time.Duration(c.TTLMS) * time.Millisecond
}

// ProxyConfig holds rewriting transport settings.
type ProxyConfig struct {
	// Alternative enables the alternative rewriting engine.
	Alternative       bool   `envconfig:"SCRAMJET" default:"false"`
	PrimaryPrefix     string `envconfig:"PRIMARY_PREFIX" default:"uv"`
	AlternativePrefix string `envconfig:"ALTERNATIVE_PREFIX" default:"scramjet"`
	// DirectFallback permits loading a target unproxied as the last attempt.
	DirectFallback bool   `envconfig:"DIRECT_FALLBACK" default:"false"`
	SearchEngine   string `envconfig:"SEARCH_ENGINE" default:"https://www.google.com/search?q="`
}

// TunnelConfig holds tunnel endpoint discovery settings.
type TunnelConfig struct {
	Endpoint          string        `envconfig:"TUNNEL_ENDPOINT"`
	DefaultEndpoint   string        `envconfig:"TUNNEL_DEFAULT_ENDPOINT"`
	Static            bool          `envconfig:"STATIC" default:"false"`
	Candidates        []string      `envconfig:"TUNNEL_CANDIDATES"`
	ProbeTimeout      time.Duration `envconfig:"TUNNEL_PROBE_TIMEOUT" default:"5s"`
	ActivationTimeout time.Duration `envconfig:"TRANSPORT_ACTIVATION_TIMEOUT" default:"8s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Catalog.CacheMS < 0 {
		return fmt.Errorf("CATALOG_CACHE_MS must not be negative, got %d", c.Catalog.CacheMS)
	}
	if c.Launch.TTLMS < 0 {
		return fmt.Errorf("LAUNCH_TTL_MS must not be negative, got %d", c.Launch.TTLMS)
	}
	if c.Proxy.PrimaryPrefix == c.Proxy.AlternativePrefix {
		return fmt.Errorf("PRIMARY_PREFIX and ALTERNATIVE_PREFIX must differ, both are %q", c.Proxy.PrimaryPrefix)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("RATE_LIMIT_RPS must be positive when rate limiting is enabled, got %d", c.RateLimit.RequestsPerSecond)
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("RATE_LIMIT_BURST must be positive when rate limiting is enabled, got %d", c.RateLimit.Burst)
		}
	}
	for _, origin := range c.Server.CORSOrigins {
		if err := validateOrigin(origin); err != nil {
			return err
		}
	}
	return nil
}

func validateOrigin(origin string) error {
	if origin == "*" {
		return nil
	}
	if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
		return fmt.Errorf("CORS_ORIGINS entry %q must start with http:// or https://", origin)
	}
	if strings.Count(origin, "*") > 1 {
		return fmt.Errorf("CORS_ORIGINS entry %q may hold at most one wildcard", origin)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "2345",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
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
		Catalog: CatalogConfig{
			Path:          "data/apps.json",
			WhitelistPath: "data/whitelist.json",
			CacheMS:       5000,
		},
		Launch: LaunchConfig{
			TTLMS:         600000,
			PurgeInterval: time.Minute,
		},
		Proxy: ProxyConfig{
			PrimaryPrefix:     "uv",
			AlternativePrefix: "scramjet",
			SearchEngine:      "https://www.google.com/search?q=",
		},
		Tunnel: TunnelConfig{
			ProbeTimeout:      5 * time.Second,
			ActivationTimeout: 8 * time.Second,
		},
	}
}
