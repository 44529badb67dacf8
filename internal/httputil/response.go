// Package httputil holds the JSON error envelope shared by the API handlers
// and by the middleware that rejects requests before they reach a handler.
package httputil

import (
	"github.com/gin-gonic/gin"

	"github.com/wikiroute/wikiroute/internal/metrics"
)

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "request_id"

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RequestID returns the ID the request was tagged with, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// RespondError aborts the request with an ErrorResponse and counts it under
// wikiroute_errors_total by code.
func RespondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()

	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: RequestID(c),
	})
}
