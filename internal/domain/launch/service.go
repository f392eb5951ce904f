package launch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bagcat/portal/internal/domain/catalog"
	"github.com/bagcat/portal/internal/domain/route"
	"github.com/bagcat/portal/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// Catalog is the part of the catalog store a Launcher needs.
type Catalog interface {
	Load(ctx context.Context) (*catalog.Snapshot, error)
}

// Request asks for a play session.
type Request struct {
	ID string
	// Host is the request host the primary codec key is derived from.
	Host string
}

// Result is returned to the browser.
type Result struct {
	PlayURL string     `json:"playUrl"`
	Mode    route.Mode `json:"mode"`
	GameID  string     `json:"gameId"`
}

// Launcher ties the catalog, mode resolver, path builder and token store
// together.
type Launcher struct {
	catalog            Catalog
	tokens             *Store
	paths              *route.Builder
	alternativeEnabled bool
	logger             *zap.Logger
	metrics            *monitoring.Metrics
}

// NewLauncher creates a launcher.
func NewLauncher(cat Catalog, tokens *Store, paths *route.Builder, alternativeEnabled bool, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		catalog:            cat,
		tokens:             tokens,
		paths:              paths,
		alternativeEnabled: alternativeEnabled,
		logger:             logger,
	}
}

// WithMetrics adds metrics to the launcher
func (l *Launcher) WithMetrics(metrics *monitoring.Metrics) *Launcher {
	l.metrics = metrics
	return l
}

// Launch validates req against the catalog and issues a token. Returned
// errors are always *Error values; internal causes are wrapped under
// ErrLaunchFailed.
func (l *Launcher) Launch(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Launch panicked", zap.Any("panic", r), zap.String("id", req.ID))
			res, err = Result{}, fmt.Errorf("%w: panic: %v", ErrLaunchFailed, r)
		}
		l.record(res.Mode, err, time.Since(start))
	}()

	gameID := strings.TrimSpace(req.ID)
	if gameID == "" {
		return Result{}, ErrIDRequired
	}

	snap, err := l.catalog.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: load catalog: %w", ErrLaunchFailed, err)
	}

	entry, ok := snap.Lookup(gameID)
	if !ok {
		return Result{}, ErrGameNotFound
	}
	if entry.Disabled {
		return Result{}, ErrGameDisabled
	}
	if entry.Local {
		return Result{}, ErrLocalGame
	}

	target := route.NormalizePlayableURL(entry.URL.First())
	if target == "" || !route.IsAbsoluteHTTPURL(target) {
		return Result{}, ErrInvalidTargetURL
	}

	mode := route.ResolveMode(route.ResolveInput{
		Override:           entry.ProxyMode,
		TargetURL:          target,
		Whitelist:          snap.Whitelist,
		AlternativeEnabled: l.alternativeEnabled,
	})
	playPath := l.paths.PlayPath(target, mode, req.Host)

	token, err := l.tokens.Issue(Payload{PlayPath: playPath, Mode: mode, GameID: entry.ID})
	if err != nil {
		return Result{}, fmt.Errorf("%w: issue token: %w", ErrLaunchFailed, err)
	}

	l.logger.Debug("Launch issued",
		zap.String("id", entry.ID),
		zap.String("mode", string(mode)),
		zap.String("host", req.Host))

	return Result{
		PlayURL: "/play/" + token + "/",
		Mode:    mode,
		GameID:  entry.ID,
	}, nil
}

// Resolve looks a token up. Expired and unknown tokens both report false.
func (l *Launcher) Resolve(token string) (Record, bool) {
	rec, ok := l.tokens.Read(token)
	if l.metrics != nil {
		l.metrics.RecordResolve(ok)
	}
	return rec, ok
}

func (l *Launcher) record(mode route.Mode, err error, elapsed time.Duration) {
	if l.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result, _ = CodeOf(err)
	}
	l.metrics.RecordLaunch(string(mode), result, elapsed)
}
