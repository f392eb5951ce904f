package launch

import (
	"context"
	"sync"
	"time"

	"github.com/bagcat/portal/internal/domain/route"
	"github.com/bagcat/portal/internal/infrastructure/monitoring"
	"github.com/bagcat/portal/internal/shared/id"
	"go.uber.org/zap"
)

const (
	// DefaultTTL is how long a launch token resolves.
	DefaultTTL = 10 * time.Minute
	// DefaultPurgeInterval is how often expired tokens are swept.
	DefaultPurgeInterval = time.Minute
)

// Payload is what a token resolves to.
type Payload struct {
	PlayPath string     `json:"playPath"`
	Mode     route.Mode `json:"mode"`
	GameID   string     `json:"gameId"`
}

// Record is a stored launch.
type Record struct {
	Token string `json:"token"`
	Payload
	ExpiresAt time.Time `json:"expiresAt"`
}

func (r Record) expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// StoreOptions configure a Store.
type StoreOptions struct {
	TTL       time.Duration
	Now       func() time.Time
	Generator *id.Generator
	Logger    *zap.Logger
}

// Store maps launch tokens to records. Expired tokens behave exactly like
// tokens that were never issued.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record

	ttl     time.Duration
	now     func() time.Time
	gen     *id.Generator
	logger  *zap.Logger
	metrics *monitoring.Metrics

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewStore creates an empty token store.
func NewStore(opts StoreOptions) *Store {
	if opts.TTL < 0 {
		opts.TTL = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Generator == nil {
		opts.Generator = id.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		records: make(map[string]Record),
		ttl:     opts.TTL,
		now:     opts.Now,
		gen:     opts.Generator,
		logger:  opts.Logger,
	}
}

// WithMetrics adds metrics to the store
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// TTL returns the token lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Issue stores payload under a fresh token.
func (s *Store) Issue(payload Payload) (string, error) {
	tok, err := s.gen.Token()
	if err != nil {
		return "", err
	}
	rec := Record{
		Token:     tok.String(),
		Payload:   payload,
		ExpiresAt: s.now().Add(s.ttl),
	}

	s.mu.Lock()
	s.records[rec.Token] = rec
	n := len(s.records)
	s.mu.Unlock()

	s.reportActive(n)
	return rec.Token, nil
}

// Read returns the record for token. Reads are repeatable until expiry;
// an expired record is deleted on the way out.
func (s *Store) Read(token string) (Record, bool) {
	s.mu.RLock()
	rec, ok := s.records[token]
	s.mu.RUnlock()
	if !ok {
		return Record{}, false
	}

	now := s.now()
	if !rec.expired(now) {
		return rec, true
	}

	s.mu.Lock()
	// Re-check under the write lock; the token may have been purged already.
	if cur, still := s.records[token]; still && cur.expired(now) {
		delete(s.records, token)
	}
	n := len(s.records)
	s.mu.Unlock()

	s.reportActive(n)
	return Record{}, false
}

// PurgeExpired deletes every expired record and returns how many went.
func (s *Store) PurgeExpired() int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for tok, rec := range s.records {
		if rec.expired(now) {
			delete(s.records, tok)
			removed++
		}
	}
	n := len(s.records)
	s.mu.Unlock()

	if s.metrics != nil && removed > 0 {
		s.metrics.AddTokensPurged(removed)
	}
	s.reportActive(n)
	return removed
}

// Len is the number of stored records, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Start runs PurgeExpired every interval until ctx is done or Close is
// called. Calling Start on a running store is a no-op.
func (s *Store) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}

	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.PurgeExpired(); removed > 0 {
					s.logger.Debug("Purged expired launch tokens", zap.Int("removed", removed))
				}
			}
		}
	}(s.done)
}

// Close stops the janitor and waits for it to exit.
func (s *Store) Close() error {
	s.lifecycleMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (s *Store) reportActive(n int) {
	if s.metrics != nil {
		s.metrics.SetTokensActive(n)
	}
}
