package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS lets pages on origins call the API and follow play redirects. An
// empty list or one containing "*" allows every origin. Other entries are
// exact origins or carry a single wildcard, e.g. "https://*.bagcat.example".
// Nothing is authenticated, so credentials are never allowed.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			"Content-Type",
			"Accept",
			"Origin",
			"Cache-Control",
			"X-Requested-With",
			RequestIDHeader,
		},
		// Warning marks a stale catalog snapshot.
		ExposeHeaders: []string{RequestIDHeader, "Warning"},
		MaxAge:        12 * time.Hour,
	}
	if AllowsAnyOrigin(origins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowWildcard = true
	}
	return cors.New(cfg)
}

// AllowsAnyOrigin reports whether origins admits every origin.
func AllowsAnyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
