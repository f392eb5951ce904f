//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bagcat/portal/internal/client"
	"github.com/bagcat/portal/internal/infrastructure/resilience"
	"github.com/bagcat/portal/tests/helpers/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientBreakerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping circuit breaker integration test")
	}

	var calls atomic.Int32
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"catalog_unavailable"}`))
	}))
	defer broken.Close()

	c, err := client.New(client.Options{BaseURL: broken.URL, RetryMax: 0, Timeout: time.Second})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := c.Catalog(context.Background())
		assert.Equal(t, "catalog_unavailable", client.CodeOf(err))
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	_, err = c.Catalog(context.Background())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(5), calls.Load(), "an open breaker does not reach the server")
}

func TestStaleRemoteCatalogIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	var healthy atomic.Bool
	healthy.Store(true)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"apps":[{"appName":"Remote","url":"remote.test"}]}`))
	}))
	defer remote.Close()

	cfg := testutil.Config(remote.URL + "/apps.json")
	cfg.Catalog.CacheMS = 1
	ts := testutil.StartPortal(t, cfg)
	c := newClient(t, ts.URL)

	cat, err := c.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, cat.Apps, 1)

	healthy.Store(false)
	time.Sleep(10 * time.Millisecond)

	// The last good snapshot keeps being served.
	cat, err = c.Catalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, cat.Apps, 1)

	_, err = c.Launch(context.Background(), "apps:apps:0:remote")
	assert.NoError(t, err)
}
