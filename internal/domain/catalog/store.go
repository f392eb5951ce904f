package catalog

import (
	"context"
	"errors"
	"io/fs"
	"sync/atomic"
	"time"

	"github.com/bagcat/portal/internal/domain/route"
	"github.com/bagcat/portal/internal/infrastructure/monitoring"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a snapshot is served before it is rebuilt.
const DefaultTTL = 5 * time.Second

// Snapshot is one immutable load of the catalog.
type Snapshot struct {
	Apps       []Entry
	Games      map[string][]Entry
	Categories []string
	Whitelist  route.Whitelist
	LoadedAt   time.Time
	// Stale is set when a remote source failed and the previous contents
	// are being served.
	Stale bool

	index map[string]Entry
}

func emptySnapshot(at time.Time) *Snapshot {
	return &Snapshot{
		Apps:      []Entry{},
		Games:     map[string][]Entry{},
		Whitelist: route.Whitelist{},
		LoadedAt:  at,
		index:     map[string]Entry{},
	}
}

// NewSnapshot assembles a snapshot from already normalized entries.
func NewSnapshot(apps []Entry, games map[string][]Entry, wl route.Whitelist, at time.Time) *Snapshot {
	snap := emptySnapshot(at)
	if apps != nil {
		snap.Apps = apps
	}
	if games != nil {
		snap.Games = games
	}
	if wl != nil {
		snap.Whitelist = wl
	}
	// A map carries no order, so categories come out sorted.
	snap.Categories = orderCategories(snap.Games, nil)
	snap.index = buildIndex(snap, nil)
	return snap
}

// buildIndex maps ids to entries. Apps are indexed before games and later
// entries replace earlier ones with the same id.
func buildIndex(snap *Snapshot, onDuplicate func(id string)) map[string]Entry {
	index := make(map[string]Entry, len(snap.Apps))
	add := func(e Entry) {
		if _, dup := index[e.ID]; dup && onDuplicate != nil {
			onDuplicate(e.ID)
		}
		index[e.ID] = e
	}
	for _, e := range snap.Apps {
		add(e)
	}
	for _, category := range snap.Categories {
		for _, e := range snap.Games[category] {
			add(e)
		}
	}
	return index
}

// Lookup returns the entry with the given id.
func (s *Snapshot) Lookup(id string) (Entry, bool) {
	e, ok := s.index[id]
	return e, ok
}

// Len is the number of distinct ids.
func (s *Snapshot) Len() int {
	return len(s.index)
}

// Options configure a Store.
type Options struct {
	Catalog Source
	// Whitelist is optional.
	Whitelist Source
	TTL       time.Duration
	Now       func() time.Time
	Logger    *zap.Logger
}

// Store serves catalog snapshots, rebuilding them when they expire.
type Store struct {
	catalog   Source
	whitelist Source
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
	metrics   *monitoring.Metrics

	current atomic.Pointer[Snapshot]
	invalid atomic.Bool
	group   singleflight.Group
}

// NewStore creates a catalog store. Nothing is read until the first Load.
func NewStore(opts Options) *Store {
	if opts.TTL < 0 {
		opts.TTL = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		catalog:   opts.Catalog,
		whitelist: opts.Whitelist,
		ttl:       opts.TTL,
		now:       opts.Now,
		logger:    opts.Logger,
	}
}

// WithMetrics adds metrics to the store
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// Current returns the last built snapshot without triggering a reload.
func (s *Store) Current() *Snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap
	}
	return emptySnapshot(time.Time{})
}

// Invalidate forces the next Load to rebuild.
func (s *Store) Invalidate() {
	s.invalid.Store(true)
}

// Load returns a fresh snapshot, rebuilding it if the TTL has passed.
// Source failures never surface here; only ctx errors do.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil && !s.invalid.Load() && s.now().Sub(snap.LoadedAt) < s.ttl {
		return snap, nil
	}

	// The rebuild is shared, so one caller going away must not abort it.
	ch := s.group.DoChan("load", func() (any, error) {
		return s.rebuild(context.WithoutCancel(ctx)), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val.(*Snapshot), nil
	}
}

func (s *Store) rebuild(ctx context.Context) *Snapshot {
	s.invalid.Store(false)
	now := s.now()
	prev := s.current.Load()

	data, err := s.fetch(ctx, s.catalog)
	var raw any
	if err == nil {
		raw, err = decode(data, s.catalog.Format())
	}
	if err != nil {
		snap, result := s.fallback(prev, now, err)
		s.publish(snap, result)
		return snap
	}

	apps, games, categories := parseCatalog(raw, gameOrder(data, s.catalog.Format()))
	snap := &Snapshot{
		Apps:       apps,
		Games:      games,
		Categories: categories,
		Whitelist:  s.loadWhitelist(ctx, prev),
		LoadedAt:   now,
	}
	snap.index = buildIndex(snap, func(id string) {
		s.logger.Warn("Duplicate catalog id, later entry wins", zap.String("id", id))
	})

	s.publish(snap, "ok")
	return snap
}

func (s *Store) fetch(ctx context.Context, src Source) ([]byte, error) {
	if src == nil {
		return nil, fs.ErrNotExist
	}
	return src.Fetch(ctx)
}

func (s *Store) read(ctx context.Context, src Source) (any, error) {
	data, err := s.fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	return decode(data, src.Format())
}

// fallback decides what to serve when the catalog source is unusable.
func (s *Store) fallback(prev *Snapshot, now time.Time, err error) (*Snapshot, string) {
	if s.catalog != nil && s.catalog.Remote() && prev != nil {
		s.logger.Warn("Catalog source failed, serving previous snapshot",
			zap.Stringer("source", s.catalog), zap.Error(err))
		next := *prev
		next.LoadedAt = now
		next.Stale = true
		return &next, "stale"
	}

	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Catalog source missing, serving empty catalog", zap.Error(err))
	} else {
		s.logger.Error("Catalog source unreadable, serving empty catalog", zap.Error(err))
	}
	return emptySnapshot(now), "fallback"
}

func (s *Store) loadWhitelist(ctx context.Context, prev *Snapshot) route.Whitelist {
	if s.whitelist == nil {
		return route.Whitelist{}
	}
	raw, err := s.read(ctx, s.whitelist)
	if err == nil {
		return route.NewWhitelist(parseWhitelist(raw))
	}

	if s.whitelist.Remote() && prev != nil {
		s.logger.Warn("Whitelist source failed, keeping previous domains",
			zap.Stringer("source", s.whitelist), zap.Error(err))
		return prev.Whitelist
	}
	s.logger.Warn("Whitelist unavailable, using empty whitelist",
		zap.Stringer("source", s.whitelist), zap.Error(err))
	return route.Whitelist{}
}

func (s *Store) publish(snap *Snapshot, result string) {
	s.current.Store(snap)
	if s.metrics != nil {
		s.metrics.RecordCatalogReload(result, snap.Len())
	}
	s.logger.Debug("Catalog snapshot built",
		zap.String("result", result),
		zap.Int("entries", snap.Len()),
		zap.Int("apps", len(snap.Apps)),
		zap.Int("categories", len(snap.Categories)))
}
