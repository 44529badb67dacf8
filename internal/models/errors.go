package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for dump processing. Malformed rows and unresolved
// redirects are counted and skipped; a missing artifact halts the stage.
var (
	ErrMalformedRow       = errors.New("malformed row")
	ErrUnresolvedRedirect = errors.New("unresolved redirect")
	ErrMissingArtifact    = errors.New("missing input artifact")
	ErrInvalidID          = errors.New("invalid page id")
)

// Sentinel errors for lookups.
var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrTitleNotFound = errors.New("title not found")
)

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}
