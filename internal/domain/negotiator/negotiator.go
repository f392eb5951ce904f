package negotiator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bagcat/portal/internal/domain/route"
	"github.com/bagcat/portal/internal/infrastructure/monitoring"
	"github.com/bagcat/portal/internal/infrastructure/resilience"
	"github.com/bagcat/portal/internal/shared/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// State is a negotiation step.
type State string

const (
	StateUninitialized         State = "uninitialized"
	StateInitializingRuntime   State = "initializing-runtime"
	StateRegisteringTransports State = "registering-transports"
	StateDiscoveringEndpoint   State = "discovering-endpoint"
	StateReady                 State = "ready"
	StateFailed                State = "failed"
)

// EndpointSource tells where the tunnel endpoint came from.
type EndpointSource string

const (
	SourceUser       EndpointSource = "user"
	SourceDefault    EndpointSource = "default"
	SourceProbe      EndpointSource = "probe"
	SourceSameOrigin EndpointSource = "same-origin"
)

const (
	DefaultActivationTimeout = 8 * time.Second
	DefaultProbeTimeout      = 5 * time.Second

	// maxMemoized bounds the ready negotiations kept per Negotiator.
	maxMemoized = 64
)

var (
	// ErrNoEndpoint means no tunnel endpoint could be found. The UI shows it
	// as its own error, not as a loading state.
	ErrNoEndpoint = errors.New("no_endpoint")
)

// RuntimeLoader loads the alternative engine's runtime bundle.
type RuntimeLoader interface {
	LoadRuntime(ctx context.Context) error
}

// WorkerRegistrar registers a transport's service worker and returns once
// it is activated.
type WorkerRegistrar interface {
	Register(ctx context.Context, t Transport) error
}

// EndpointProber checks that a tunnel endpoint accepts connections.
type EndpointProber interface {
	Probe(ctx context.Context, endpoint string) error
}

// Transport is one rewriting transport's worker.
type Transport struct {
	Mode      route.Mode `json:"mode"`
	Script    string     `json:"script"`
	Scope     string     `json:"scope,omitempty"`
	Activated bool       `json:"activated"`
	Error     string     `json:"error,omitempty"`
}

// Config is everything a negotiation depends on.
type Config struct {
	AlternativeEnabled bool
	// UserEndpoint is an explicit user choice and always wins.
	UserEndpoint string
	// DefaultEndpoint is declared by the deployment.
	DefaultEndpoint string
	// Static deployments have no tunnel of their own and probe Candidates.
	Static     bool
	Candidates []string
	// SameOrigin is the tunnel served next to the portal.
	SameOrigin string
	// DirectFallback permits an unproxied load as the last frame attempt.
	DirectFallback    bool
	ActivationTimeout time.Duration
	ProbeTimeout      time.Duration
}

// Fingerprint identifies configurations that negotiate identically.
// SameOrigin only counts when no user or default endpoint outranks it and
// the deployment is not static.
func (c Config) Fingerprint() string {
	origin := ""
	if c.usesSameOrigin() {
		origin = c.SameOrigin
	}
	return utils.DefaultHasher().HashFields(
		"alternative="+strconv.FormatBool(c.AlternativeEnabled),
		"user="+strings.TrimSpace(c.UserEndpoint),
		"default="+strings.TrimSpace(c.DefaultEndpoint),
		"static="+strconv.FormatBool(c.Static),
		"candidates="+strings.Join(c.Candidates, ","),
		"origin="+origin,
		"direct="+strconv.FormatBool(c.DirectFallback),
	)
}

func (c Config) usesSameOrigin() bool {
	return strings.TrimSpace(c.UserEndpoint) == "" &&
		strings.TrimSpace(c.DefaultEndpoint) == "" &&
		!c.Static
}

// Status is the outcome of a negotiation.
type Status struct {
	ID                   string         `json:"id"`
	State                State          `json:"state"`
	Endpoint             string         `json:"endpoint,omitempty"`
	EndpointSource       EndpointSource `json:"endpointSource,omitempty"`
	AlternativeAvailable bool           `json:"alternativeAvailable"`
	DirectFallback       bool           `json:"directFallback"`
	Transports           []Transport    `json:"transports"`
	Error                string         `json:"error,omitempty"`
	Fingerprint          string         `json:"-"`
	StartedAt            time.Time      `json:"startedAt"`
	FinishedAt           time.Time      `json:"finishedAt"`
}

// Ready reports whether frames may be pointed at rewritten URLs.
func (s *Status) Ready() bool {
	return s != nil && s.State == StateReady
}

// Options configure a Negotiator. Nil collaborators skip their step.
type Options struct {
	Runtime  RuntimeLoader
	Workers  WorkerRegistrar
	Prober   EndpointProber
	Prefixes route.Prefixes
	Logger   *zap.Logger
	// OnTransition observes every state change.
	OnTransition func(id string, from, to State)
}

// Negotiator runs and memoizes negotiations.
type Negotiator struct {
	runtime      RuntimeLoader
	workers      WorkerRegistrar
	prober       EndpointProber
	prefixes     route.Prefixes
	logger       *zap.Logger
	metrics      *monitoring.Metrics
	onTransition func(id string, from, to State)

	probes *resilience.Group
	group  singleflight.Group

	mu     sync.RWMutex
	ready  map[string]*Status
	latest *Status
}

// New creates a negotiator.
func New(opts Options) *Negotiator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Prefixes.Primary == "" {
		opts.Prefixes.Primary = route.DefaultPrefixes().Primary
	}
	if opts.Prefixes.Alternative == "" {
		opts.Prefixes.Alternative = route.DefaultPrefixes().Alternative
	}
	return &Negotiator{
		runtime:      opts.Runtime,
		workers:      opts.Workers,
		prober:       opts.Prober,
		prefixes:     opts.Prefixes,
		logger:       opts.Logger,
		onTransition: opts.OnTransition,
		probes: resilience.NewGroup(resilience.Settings{
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
			IsFailure: func(err error) bool {
				return err != nil && !errors.Is(err, context.Canceled)
			},
		}),
		ready: make(map[string]*Status),
	}
}

// WithMetrics adds metrics to the negotiator
func (n *Negotiator) WithMetrics(metrics *monitoring.Metrics) *Negotiator {
	n.metrics = metrics
	return n
}

// Latest returns the most recent finished negotiation, or nil.
func (n *Negotiator) Latest() *Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.latest
}

// Reset forgets memoized results, forcing the next Ensure to run again.
func (n *Negotiator) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ready = make(map[string]*Status)
}

// Ensure returns a ready negotiation for cfg, running one if needed. A
// failed negotiation returns its status together with ErrNoEndpoint and is
// not memoized, so the next call tries again.
func (n *Negotiator) Ensure(ctx context.Context, cfg Config) (*Status, error) {
	fp := cfg.Fingerprint()

	n.mu.RLock()
	st, ok := n.ready[fp]
	n.mu.RUnlock()
	if ok {
		return st, nil
	}

	// Shared by every caller with this fingerprint; one caller leaving
	// must not abort it.
	ch := n.group.DoChan(fp, func() (any, error) {
		st := n.run(context.WithoutCancel(ctx), cfg, fp)

		n.mu.Lock()
		n.latest = st
		if st.Ready() {
			n.remember(fp, st)
		}
		n.mu.Unlock()

		if !st.Ready() {
			return st, ErrNoEndpoint
		}
		return st, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val.(*Status), res.Err
	}
}

// remember memoizes st, evicting an arbitrary entry when full. Callers
// hold n.mu.
func (n *Negotiator) remember(fp string, st *Status) {
	if _, ok := n.ready[fp]; !ok && len(n.ready) >= maxMemoized {
		for k := range n.ready {
			delete(n.ready, k)
			break
		}
	}
	n.ready[fp] = st
}

// Memoized returns the number of ready negotiations kept for reuse.
func (n *Negotiator) Memoized() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.ready)
}

type negotiation struct {
	n     *Negotiator
	st    *Status
	state State
}

func (r *negotiation) enter(to State) {
	from := r.state
	r.state = to
	r.st.State = to
	r.n.logger.Debug("Negotiation state", zap.String("id", r.st.ID), zap.String("from", string(from)), zap.String("to", string(to)))
	if r.n.onTransition != nil {
		r.n.onTransition(r.st.ID, from, to)
	}
}

func (n *Negotiator) run(ctx context.Context, cfg Config, fp string) *Status {
	r := &negotiation{
		n:     n,
		state: StateUninitialized,
		st: &Status{
			ID:             uuid.New().String(),
			State:          StateUninitialized,
			Fingerprint:    fp,
			DirectFallback: cfg.DirectFallback,
			Transports:     []Transport{},
			StartedAt:      time.Now(),
		},
	}
	defer func() {
		r.st.FinishedAt = time.Now()
		if n.metrics != nil {
			n.metrics.RecordNegotiation(string(r.st.State))
		}
	}()

	r.enter(StateInitializingRuntime)
	r.st.AlternativeAvailable = n.initRuntime(ctx, cfg)

	r.enter(StateRegisteringTransports)
	r.st.Transports = n.registerTransports(ctx, cfg, r.st.AlternativeAvailable)

	r.enter(StateDiscoveringEndpoint)
	endpoint, source, err := n.discoverEndpoint(ctx, cfg)
	if err != nil {
		r.st.Error = ErrNoEndpoint.Error()
		r.enter(StateFailed)
		n.logger.Warn("Negotiation failed", zap.String("id", r.st.ID), zap.Error(err))
		return r.st
	}
	r.st.Endpoint = endpoint
	r.st.EndpointSource = source

	r.enter(StateReady)
	n.logger.Info("Transports ready",
		zap.String("id", r.st.ID),
		zap.String("fingerprint", utils.Short(fp)),
		zap.String("endpoint", endpoint),
		zap.String("source", string(source)),
		zap.Bool("alternative", r.st.AlternativeAvailable))
	return r.st
}

// initRuntime reports whether the alternative engine can be used.
func (n *Negotiator) initRuntime(ctx context.Context, cfg Config) bool {
	if !cfg.AlternativeEnabled {
		return false
	}
	if n.runtime == nil {
		return true
	}
	if err := n.runtime.LoadRuntime(ctx); err != nil {
		n.logger.Warn("Alternative runtime unavailable, continuing with primary only", zap.Error(err))
		return false
	}
	return true
}

// Transports lists the workers to register.
func (n *Negotiator) Transports(alternative bool) []Transport {
	out := []Transport{{
		Mode:   route.ModePrimary,
		Script: strings.Trim(n.prefixes.Primary, "/") + "/sw.js",
	}}
	if alternative {
		out = append(out, Transport{
			Mode:   route.ModeAlternative,
			Script: "s_sw.js",
			Scope:  strings.Trim(n.prefixes.Alternative, "/") + "/",
		})
	}
	return out
}

func (n *Negotiator) registerTransports(ctx context.Context, cfg Config, alternative bool) []Transport {
	transports := n.Transports(alternative)
	if n.workers == nil {
		for i := range transports {
			transports[i].Activated = true
		}
		return transports
	}

	timeout := cfg.ActivationTimeout
	if timeout <= 0 {
		timeout = DefaultActivationTimeout
	}

	// Registration is best-effort, so the group never carries an error.
	var g errgroup.Group
	for i := range transports {
		t := &transports[i]
		g.Go(func() error {
			actx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			err := n.workers.Register(actx, *t)
			switch {
			case err == nil:
				t.Activated = true
			case errors.Is(err, context.DeadlineExceeded):
				t.Error = fmt.Sprintf("not activated within %s", timeout)
			default:
				t.Error = err.Error()
			}
			if err != nil {
				n.logger.Warn("Transport worker not activated", zap.String("script", t.Script), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return transports
}

func (n *Negotiator) discoverEndpoint(ctx context.Context, cfg Config) (string, EndpointSource, error) {
	if ep := strings.TrimSpace(cfg.UserEndpoint); ep != "" {
		return ep, SourceUser, nil
	}
	if ep := strings.TrimSpace(cfg.DefaultEndpoint); ep != "" {
		return ep, SourceDefault, nil
	}
	if cfg.usesSameOrigin() {
		if cfg.SameOrigin == "" {
			return "", "", fmt.Errorf("%w: no same-origin endpoint configured", ErrNoEndpoint)
		}
		return cfg.SameOrigin, SourceSameOrigin, nil
	}

	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ep, err := n.race(pctx, cfg.Candidates)
	if err != nil {
		return "", "", err
	}
	return ep, SourceProbe, nil
}
