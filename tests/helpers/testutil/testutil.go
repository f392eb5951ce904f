// Package testutil provides helpers for portal integration tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bagcat/portal/internal/infrastructure/config"
	"github.com/bagcat/portal/internal/infrastructure/server"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// SampleCatalog has one entry for each launch outcome.
const SampleCatalog = `{
  "apps": [
    {"appName": "Demo", "url": "example.com"},
    {"appName": "Off", "url": "https://off.test", "disabled": true},
    {"appName": "Local", "url": "/games/local/index.html", "local": true}
  ],
  "games": {
    "Action": [
      {"appName": "Slope", "url": "https://slope.io"},
      {"appName": "Forced", "url": "https://forced.test", "proxyMode": "scr"}
    ]
  }
}`

// WriteFile writes content to name inside a fresh temp dir.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Config returns a quiet config reading catalogPath.
func Config(catalogPath string) *config.Config {
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Catalog.Path = catalogPath
	cfg.Catalog.WhitelistPath = ""
	cfg.RateLimit.Enabled = false
	return cfg
}

// StartPortal runs a full portal for cfg until the test ends.
func StartPortal(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	srv, err := server.NewServer(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})
	return ts
}

// StartTunnel runs a WebSocket endpoint that accepts and closes
// connections, enough to pass an endpoint probe.
func StartTunnel(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.Close)
	return "ws" + ts.URL[len("http"):] + "/"
}
