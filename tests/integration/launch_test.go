//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bagcat/portal/internal/client"
	"github.com/bagcat/portal/internal/domain/negotiator"
	"github.com/bagcat/portal/internal/domain/route"
	"github.com/bagcat/portal/tests/helpers/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var playURLRe = regexp.MustCompile(`^/play/[A-Za-z0-9_-]{24,}/$`)

func newClient(t *testing.T, base string) *client.Client {
	t.Helper()
	c, err := client.New(client.Options{BaseURL: base, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestLaunchFlowIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := testutil.StartPortal(t, testutil.Config(testutil.WriteFile(t, "apps.json", testutil.SampleCatalog)))
	c := newClient(t, ts.URL)
	ctx := context.Background()

	t.Run("primary launch redirects to a hex path", func(t *testing.T) {
		res, err := c.Launch(ctx, "apps:apps:0:demo")
		require.NoError(t, err)
		assert.Equal(t, route.ModePrimary, res.Mode)
		assert.Regexp(t, playURLRe, res.PlayURL)

		path, err := c.Resolve(ctx, res.PlayURL)
		require.NoError(t, err)
		assert.Regexp(t, `^/uv/service/[0-9a-f]+$`, path)

		// Retries before expiry see the same path.
		again, err := c.Resolve(ctx, res.PlayURL)
		require.NoError(t, err)
		assert.Equal(t, path, again)

		decoded, err := c.Decode(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", decoded.URL)
	})

	t.Run("error codes", func(t *testing.T) {
		tests := map[string]string{
			"nope":                  "game_not_found",
			"apps:apps:1:off":       "game_disabled",
			"apps:apps:2:local":     "local_game_not_proxyable",
			"":                      "id_required",
			"games:action:0:slope":  "",
			"games:action:1:forced": "",
		}
		for id, want := range tests {
			_, err := c.Launch(ctx, id)
			assert.Equal(t, want, client.CodeOf(err), id)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := c.Resolve(ctx, "/play/definitely-not-a-token/")
		assert.ErrorIs(t, err, client.ErrExpired)
	})
}

func TestAlternativeEngineIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testutil.Config(testutil.WriteFile(t, "apps.json", testutil.SampleCatalog))
	cfg.Proxy.Alternative = true
	cfg.Catalog.WhitelistPath = testutil.WriteFile(t, "whitelist.json", `["example.com"]`)
	ts := testutil.StartPortal(t, cfg)
	c := newClient(t, ts.URL)
	ctx := context.Background()

	for id, want := range map[string]route.Mode{
		"apps:apps:0:demo":      route.ModeAlternative, // whitelisted
		"games:action:0:slope":  route.ModeAlternative, // .io
		"games:action:1:forced": route.ModeAlternative, // override
	} {
		res, err := c.Launch(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, want, res.Mode, id)

		path, err := c.Resolve(ctx, res.PlayURL)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(path, "/scramjet/https%3A%2F%2F"), path)
	}
}

func TestRemoteYAMLCatalogIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte("apps:\n  - appName: Remote\n    url: remote.test\ngames: {}\n"))
	}))
	defer remote.Close()

	ts := testutil.StartPortal(t, testutil.Config(remote.URL+"/apps.yaml"))
	c := newClient(t, ts.URL)

	cat, err := c.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, cat.Apps, 1)
	assert.Equal(t, "apps:apps:0:remote", cat.Apps[0].ID)

	res, err := c.Launch(context.Background(), "apps:apps:0:remote")
	require.NoError(t, err)
	assert.Equal(t, route.ModePrimary, res.Mode)
}

func TestTransportDiscoveryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tunnel := testutil.StartTunnel(t)

	cfg := testutil.Config(testutil.WriteFile(t, "apps.json", testutil.SampleCatalog))
	cfg.Tunnel.Static = true
	cfg.Tunnel.Candidates = []string{"ws://127.0.0.1:1/", tunnel}
	cfg.Tunnel.ProbeTimeout = 2 * time.Second
	ts := testutil.StartPortal(t, cfg)

	st, err := newClient(t, ts.URL).Transport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, negotiator.StateReady, st.State)
	assert.Equal(t, tunnel, st.Endpoint)
	assert.Equal(t, negotiator.SourceProbe, st.EndpointSource)

	cfg = testutil.Config(testutil.WriteFile(t, "apps.json", testutil.SampleCatalog))
	cfg.Tunnel.Static = true
	cfg.Tunnel.Candidates = []string{"ws://127.0.0.1:1/"}
	cfg.Tunnel.ProbeTimeout = 500 * time.Millisecond
	ts = testutil.StartPortal(t, cfg)

	st, err = newClient(t, ts.URL).Transport(context.Background())
	assert.True(t, client.IsNoEndpoint(err))
	require.NotNil(t, st)
	assert.Equal(t, "no_endpoint", st.Error)
}
