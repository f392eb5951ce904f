package http

import (
	"net/http"
	"strings"

	"github.com/bagcat/portal/internal/domain/route"
	"github.com/gin-gonic/gin"
)

type rewriteRequest struct {
	Input string `json:"input"`
	// Mode is auto, primary or alternative.
	Mode   string `json:"mode"`
	Engine string `json:"engine"`
}

type rewriteResponse struct {
	URL  string     `json:"url"`
	Mode route.Mode `json:"mode"`
	Path string     `json:"path"`
}

// Rewrite turns omnibox input into a play path.
func (h *Handlers) Rewrite(c *gin.Context) {
	var req rewriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Input) == "" {
		abortWithCode(c, http.StatusBadRequest, "input_required")
		return
	}

	engine := h.engine
	if strings.TrimSpace(req.Engine) != "" {
		engine = route.NormalizeSearchEngine(req.Engine)
	}
	target := route.NormalizeInput(req.Input, engine)

	wl := route.Whitelist{}
	if h.catalog != nil {
		if snap, err := h.catalog.Load(c.Request.Context()); err == nil {
			wl = snap.Whitelist
		}
	}

	mode := route.ResolveNavigationMode(target, route.ParsePreference(req.Mode), wl, h.alternative)
	c.JSON(http.StatusOK, rewriteResponse{
		URL:  target,
		Mode: mode,
		Path: h.paths.PlayPath(target, mode, c.Request.Host),
	})
}

// Decode reverses a play path.
func (h *Handlers) Decode(c *gin.Context) {
	path := strings.TrimSpace(c.Query("path"))
	if path == "" {
		abortWithCode(c, http.StatusBadRequest, "path_required")
		return
	}

	decoded, mode := h.paths.DecodePath(path, c.Request.Host)
	c.JSON(http.StatusOK, gin.H{
		"url":  decoded,
		"mode": mode,
	})
}
