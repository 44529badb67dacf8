package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wikiroute/wikiroute/internal/httputil"
)

// Error codes returned in the "code" field of error responses.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnavailable    = "unavailable"
)

func respondError(c *gin.Context, status int, code, message string) {
	httputil.RespondError(c, status, code, message)
}
