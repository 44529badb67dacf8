package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets response headers for a JSON-only API. Lookups are
// immutable for the lifetime of a loaded graph, so successful GETs may be
// cached for cacheFor; everything else is no-store.
func SecurityHeaders(cacheFor time.Duration) gin.HandlerFunc {
	cacheable := fmt.Sprintf("public, max-age=%d", int(cacheFor.Seconds()))

	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		c.Next()

		if c.Request.Method == http.MethodGet && c.Writer.Status() == http.StatusOK && cacheFor > 0 {
			c.Header("Cache-Control", cacheable)
		} else {
			c.Header("Cache-Control", "no-store")
		}
	}
}

// ReadOnly rejects every method other than GET, HEAD and OPTIONS.
func ReadOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			c.Header("Allow", "GET, HEAD, OPTIONS")
			respondError(c, http.StatusMethodNotAllowed, "method_not_allowed", "the lookup API is read-only")
		}
	}
}
