package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "2345", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)

	// Catalog config
	assert.Equal(t, "data/apps.json", cfg.Catalog.Path)
	assert.Equal(t, 5*time.Second, cfg.Catalog.CacheTTL())

	// Launch config
	assert.Equal(t, 10*time.Minute, cfg.Launch.TTL())
	assert.Equal(t, time.Minute, cfg.Launch.PurgeInterval)

	// Proxy config
	assert.False(t, cfg.Proxy.Alternative)
	assert.Equal(t, "uv", cfg.Proxy.PrimaryPrefix)
	assert.Equal(t, "scramjet", cfg.Proxy.AlternativePrefix)

	// Tunnel config
	assert.Equal(t, 8*time.Second, cfg.Tunnel.ActivationTimeout)
	assert.NoError(t, cfg.Validate())
}

// clearEnv unsets keys for the duration of the test.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadMatchesDefault(t *testing.T) {
	clearEnv(t, "PORT", "HOST", "LOG_LEVEL", "STATIC")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                         "9000",
		"HOST":                         "127.0.0.1",
		"LOG_LEVEL":                    "debug",
		"LOG_DEV":                      "true",
		"RATE_LIMIT_RPS":               "500",
		"RATE_LIMIT_BURST":             "1000",
		"RATE_LIMIT_ENABLED":           "false",
		"CATALOG_PATH":                 "https://cdn.test/apps.yaml",
		"CATALOG_CACHE_MS":             "250",
		"LAUNCH_TTL_MS":                "1500",
		"LAUNCH_PURGE_INTERVAL":        "5s",
		"SCRAMJET":                     "true",
		"DIRECT_FALLBACK":              "true",
		"TUNNEL_ENDPOINT":              "wss://tunnel.test/wisp/",
		"STATIC":                       "true",
		"TUNNEL_CANDIDATES":            "wss://a.test/wisp/,wss://b.test/wisp/",
		"TRANSPORT_ACTIVATION_TIMEOUT": "2s",
		"TRUSTED_PROXIES":              "10.0.0.0/8,127.0.0.1",
		"CORS_ORIGINS":                 "https://bagcat.test,https://*.bagcat.test",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "https://cdn.test/apps.yaml", cfg.Catalog.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Catalog.CacheTTL())
	assert.Equal(t, 1500*time.Millisecond, cfg.Launch.TTL())
	assert.Equal(t, 5*time.Second, cfg.Launch.PurgeInterval)
	assert.True(t, cfg.Proxy.Alternative)
	assert.True(t, cfg.Proxy.DirectFallback)
	assert.Equal(t, "wss://tunnel.test/wisp/", cfg.Tunnel.Endpoint)
	assert.True(t, cfg.Tunnel.Static)
	assert.Equal(t, []string{"wss://a.test/wisp/", "wss://b.test/wisp/"}, cfg.Tunnel.Candidates)
	assert.Equal(t, 2*time.Second, cfg.Tunnel.ActivationTimeout)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Server.TrustedProxies)
	assert.Equal(t, []string{"https://bagcat.test", "https://*.bagcat.test"}, cfg.Server.CORSOrigins)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"not a number", "CATALOG_CACHE_MS", "soon"},
		{"negative ttl", "LAUNCH_TTL_MS", "-1"},
		{"same prefixes", "ALTERNATIVE_PREFIX", "uv"},
		{"bad duration", "TUNNEL_PROBE_TIMEOUT", "five"},
		{"zero rate", "RATE_LIMIT_RPS", "0"},
		{"zero burst", "RATE_LIMIT_BURST", "0"},
		{"origin without scheme", "CORS_ORIGINS", "bagcat.test"},
		{"two wildcards", "CORS_ORIGINS", "https://*.*.bagcat.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, "PORT", "HOST", "LOG_LEVEL", "STATIC")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			cfg := LoadOrDefault()
			assert.Equal(t, Default(), cfg)
		})
	}
}

func TestValidateAllowsZeroRateWhenDisabled(t *testing.T) {
	cfg := Default()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.RequestsPerSecond = 0
	cfg.RateLimit.Burst = 0
	assert.NoError(t, cfg.Validate())
}

func TestServerConfig(t *testing.T) {
	tests := []struct {
		name     string
		port     string
		host     string
		wantPort string
		wantHost string
	}{
		{"default values", "", "", "2345", "0.0.0.0"},
		{"custom port", "9000", "", "9000", "0.0.0.0"},
		{"custom host", "", "localhost", "2345", "localhost"},
		{"custom port and host", "3000", "127.0.0.1", "3000", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, "PORT", "HOST")
			if tt.port != "" {
				t.Setenv("PORT", tt.port)
			}
			if tt.host != "" {
				t.Setenv("HOST", tt.host)
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantPort, cfg.Server.Port)
			assert.Equal(t, tt.wantHost, cfg.Server.Host)
		})
	}
}
