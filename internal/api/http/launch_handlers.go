package http

import (
	"net/http"

	"github.com/bagcat/portal/internal/domain/launch"
	"github.com/bagcat/portal/internal/shared/id"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// expiredBody is sent for unknown and expired launch tokens alike.
const expiredBody = "Launch session expired"

// Catalog returns the current catalog snapshot.
func (h *Handlers) Catalog(c *gin.Context) {
	snap, err := h.catalog.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("Catalog unavailable", zap.Error(err))
		abortWithCode(c, http.StatusInternalServerError, "catalog_unavailable")
		return
	}

	if snap.Stale {
		c.Header("Warning", `110 - "Response is Stale"`)
	}
	c.JSON(http.StatusOK, gin.H{
		"apps":       snap.Apps,
		"games":      snap.Games,
		"categories": snap.Categories,
	})
}

type launchRequest struct {
	// ID is decoded loosely so that a non-string id is reported as
	// id_required rather than a bind error.
	ID any `json:"id"`
}

// Launch issues a launch token for a catalog entry.
func (h *Handlers) Launch(c *gin.Context) {
	var req launchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithCode(c, launch.ErrIDRequired.Status, launch.ErrIDRequired.Code)
		return
	}
	gameID, ok := req.ID.(string)
	if !ok {
		abortWithCode(c, launch.ErrIDRequired.Status, launch.ErrIDRequired.Code)
		return
	}

	res, err := h.launcher.Launch(c.Request.Context(), launch.Request{
		ID:   gameID,
		Host: c.Request.Host,
	})
	if err != nil {
		code, status := launch.CodeOf(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Launch failed", zap.String("id", gameID), zap.Error(err))
		}
		abortWithCode(c, status, code)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, res)
}

// Play redirects a launch token to its play path. The token stays valid
// until it expires, so reloading the play URL works.
func (h *Handlers) Play(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	token := c.Param("token")
	if !id.IsLaunchToken(token) {
		c.Data(http.StatusNotFound, "text/plain; charset=utf-8", []byte(expiredBody))
		return
	}
	rec, ok := h.launcher.Resolve(token)
	if !ok {
		c.Data(http.StatusNotFound, "text/plain; charset=utf-8", []byte(expiredBody))
		return
	}
	c.Redirect(http.StatusFound, rec.PlayPath)
}
