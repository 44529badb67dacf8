// Package models defines data types for the article link graph.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MainNamespace is the namespace of encyclopedia articles.
const MainNamespace = 0

// InMainNamespace reports whether a dump namespace field names MainNamespace.
func InMainNamespace(field string) bool {
	ns, err := strconv.Atoi(strings.TrimSpace(field))

	return err == nil && ns == MainNamespace
}

// PageID is a page identifier as it appears in the dumps.
type PageID uint32

// String returns the decimal form used in every artifact.
func (id PageID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParsePageID parses a decimal page id. Values that do not fit a PageID are
// rejected with ErrInvalidID.
func ParsePageID(s string) (PageID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}

	return PageID(v), nil
}

// TitleEntry pairs a page id with its normalized title.
type TitleEntry struct {
	ID    PageID `json:"id"`
	Title string `json:"title"`
}

// RedirectCandidate is a redirect page before its target title is resolved.
type RedirectCandidate struct {
	RedirectID  PageID `json:"redirect_id"`
	TargetTitle string `json:"target_title"`
}
