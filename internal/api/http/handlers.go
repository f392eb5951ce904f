package http

import (
	"context"
	"net/http"
	"time"

	"github.com/bagcat/portal/internal/domain/catalog"
	"github.com/bagcat/portal/internal/domain/launch"
	"github.com/bagcat/portal/internal/domain/negotiator"
	"github.com/bagcat/portal/internal/domain/route"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CatalogReader is the part of the catalog store the handlers use.
type CatalogReader interface {
	Load(ctx context.Context) (*catalog.Snapshot, error)
	Current() *catalog.Snapshot
}

// Options wires the handlers to the domain.
type Options struct {
	Catalog    CatalogReader
	Launcher   *launch.Launcher
	Tokens     *launch.Store
	Paths      *route.Builder
	Negotiator *negotiator.Negotiator
	// Transport is the negotiation config; SameOrigin is filled in per
	// request from the Host header.
	Transport          negotiator.Config
	AlternativeEnabled bool
	SearchEngine       string
	Logger             *zap.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	catalog     CatalogReader
	launcher    *launch.Launcher
	tokens      *launch.Store
	paths       *route.Builder
	negotiator  *negotiator.Negotiator
	transport   negotiator.Config
	alternative bool
	engine      string
	logger      *zap.Logger
	started     time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(opts Options) *Handlers {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Paths == nil {
		opts.Paths = route.NewBuilder(nil, route.DefaultPrefixes())
	}
	return &Handlers{
		catalog:     opts.Catalog,
		launcher:    opts.Launcher,
		tokens:      opts.Tokens,
		paths:       opts.Paths,
		negotiator:  opts.Negotiator,
		transport:   opts.Transport,
		alternative: opts.AlternativeEnabled,
		engine:      route.NormalizeSearchEngine(opts.SearchEngine),
		logger:      opts.Logger,
		started:     time.Now(),
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.GET("/catalog", h.Catalog)
	api.POST("/launch", h.Launch)
	api.POST("/rewrite", h.Rewrite)
	api.GET("/decode", h.Decode)
	api.GET("/transport", h.Transport)

	r.GET("/play/:token", h.Play)
	r.GET("/play/:token/", h.Play)
}

// Healthz is the liveness probe.
func (h *Handlers) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Health reports catalog, launch and transport state without triggering
// any loads.
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status": "healthy",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	}

	if h.catalog != nil {
		snap := h.catalog.Current()
		body["catalog"] = gin.H{
			"entries":  snap.Len(),
			"stale":    snap.Stale,
			"loadedAt": snap.LoadedAt,
		}
	}
	if h.tokens != nil {
		body["launch"] = gin.H{
			"activeTokens": h.tokens.Len(),
			"ttl":          h.tokens.TTL().String(),
		}
	}

	state := negotiator.StateUninitialized
	if h.negotiator != nil {
		if st := h.negotiator.Latest(); st != nil {
			state = st.State
		}
	}
	body["transport"] = gin.H{"state": state}

	c.JSON(http.StatusOK, body)
}

func abortWithCode(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}
