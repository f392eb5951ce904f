package launch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bagcat/portal/internal/domain/route"
	"github.com/bagcat/portal/internal/infrastructure/monitoring"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var demoPayload = Payload{PlayPath: "/uv/service/abcd", Mode: route.ModePrimary, GameID: "apps:apps:0:demo"}

func TestIssueAndRead(t *testing.T) {
	store := NewStore(StoreOptions{TTL: DefaultTTL})

	tok, err := store.Issue(demoPayload)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(tok), 24)

	rec, ok := store.Read(tok)
	require.True(t, ok)
	assert.Equal(t, demoPayload, rec.Payload)
	assert.Equal(t, tok, rec.Token)

	_, ok = store.Read("never-issued")
	assert.False(t, ok)
}

func TestTokenExpiry(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(StoreOptions{TTL: 10 * time.Millisecond, Now: clk.Now})

	tok, err := store.Issue(demoPayload)
	require.NoError(t, err)

	clk.Advance(5 * time.Millisecond)
	for i := 0; i < 3; i++ {
		rec, ok := store.Read(tok)
		require.True(t, ok, "read %d", i)
		assert.Equal(t, demoPayload, rec.Payload)
	}

	clk.Advance(15 * time.Millisecond)
	_, ok := store.Read(tok)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len(), "expired read deletes the record")
}

func TestTokenExpiryRealClock(t *testing.T) {
	store := NewStore(StoreOptions{TTL: 10 * time.Millisecond})

	tok, err := store.Issue(demoPayload)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, ok := store.Read(tok)
	assert.False(t, ok)
}

func TestExpiryBoundary(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(StoreOptions{TTL: 10 * time.Millisecond, Now: clk.Now})

	tok, err := store.Issue(demoPayload)
	require.NoError(t, err)

	clk.Advance(10 * time.Millisecond)
	_, ok := store.Read(tok)
	assert.True(t, ok, "a token is still valid at exactly expiresAt")

	clk.Advance(time.Nanosecond)
	_, ok = store.Read(tok)
	assert.False(t, ok)
}

func TestPurgeExpired(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(StoreOptions{TTL: 0, Now: clk.Now})

	for i := 0; i < 3; i++ {
		_, err := store.Issue(demoPayload)
		require.NoError(t, err)
	}
	require.Equal(t, 3, store.Len())

	clk.Advance(time.Millisecond)
	assert.Equal(t, 3, store.PurgeExpired())
	assert.Equal(t, 0, store.Len())
}

func TestPurgeKeepsLiveTokens(t *testing.T) {
	clk := newFakeClock()
	short := NewStore(StoreOptions{TTL: time.Second, Now: clk.Now})

	old, err := short.Issue(demoPayload)
	require.NoError(t, err)
	clk.Advance(900 * time.Millisecond)
	fresh, err := short.Issue(demoPayload)
	require.NoError(t, err)
	clk.Advance(200 * time.Millisecond)

	assert.Equal(t, 1, short.PurgeExpired())
	_, ok := short.Read(old)
	assert.False(t, ok)
	_, ok = short.Read(fresh)
	assert.True(t, ok)
}

func TestStoreMetrics(t *testing.T) {
	clk := newFakeClock()
	metrics := monitoring.NewMetrics()
	store := NewStore(StoreOptions{TTL: time.Second, Now: clk.Now}).WithMetrics(metrics)

	_, err := store.Issue(demoPayload)
	require.NoError(t, err)
	_, err = store.Issue(demoPayload)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.TokensActive))

	clk.Advance(2 * time.Second)
	store.PurgeExpired()
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.TokensActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.TokensPurged))
}

func TestJanitor(t *testing.T) {
	store := NewStore(StoreOptions{TTL: time.Millisecond})

	for i := 0; i < 3; i++ {
		_, err := store.Issue(demoPayload)
		require.NoError(t, err)
	}

	store.Start(context.Background(), 5*time.Millisecond)
	store.Start(context.Background(), 5*time.Millisecond)
	defer store.Close()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestJanitorStopsWithContext(t *testing.T) {
	store := NewStore(StoreOptions{TTL: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())

	store.Start(ctx, time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		_ = store.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after context cancellation")
	}
	assert.NoError(t, store.Close(), "Close is idempotent")
}

func TestConcurrentIssueReadPurge(t *testing.T) {
	store := NewStore(StoreOptions{TTL: time.Millisecond})

	var wg sync.WaitGroup
	tokens := make(chan string, 400)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tok, err := store.Issue(demoPayload)
				if !assert.NoError(t, err) {
					return
				}
				tokens <- tok
				if rec, ok := store.Read(tok); ok {
					assert.Equal(t, demoPayload, rec.Payload)
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			store.PurgeExpired()
		}
	}()
	wg.Wait()
	close(tokens)

	seen := make(map[string]struct{})
	for tok := range tokens {
		seen[tok] = struct{}{}
	}
	assert.Len(t, seen, 400)
}
