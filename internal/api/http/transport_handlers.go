package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bagcat/portal/internal/domain/negotiator"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Transport runs, or reuses, a negotiation for the server's configuration.
func (h *Handlers) Transport(c *gin.Context) {
	if h.negotiator == nil {
		abortWithCode(c, http.StatusServiceUnavailable, negotiator.ErrNoEndpoint.Error())
		return
	}

	cfg := h.transport
	cfg.SameOrigin = negotiator.SameOriginEndpoint(isSecure(c), c.Request.Host)

	st, err := h.negotiator.Ensure(c.Request.Context(), cfg)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, st)
	case errors.Is(err, negotiator.ErrNoEndpoint) && st != nil:
		c.JSON(http.StatusServiceUnavailable, st)
	default:
		h.logger.Warn("Negotiation abandoned", zap.Error(err))
		abortWithCode(c, http.StatusServiceUnavailable, "negotiation_unavailable")
	}
}

func isSecure(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
}
