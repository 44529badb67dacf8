package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/models"
)

// maxTitleLength bounds title and prefix query parameters. MediaWiki titles
// are at most 255 bytes.
const maxTitleLength = 255

// LookupHandler translates between page ids and titles.
type LookupHandler struct {
	lookups *Lookups
	log     *logrus.Logger
}

// NewLookupHandler creates a LookupHandler.
func NewLookupHandler(lookups *Lookups, log *logrus.Logger) *LookupHandler {
	return &LookupHandler{lookups: lookups, log: log}
}

// titles returns the current index, answering 503 when there is none.
func (h *LookupHandler) titles(c *gin.Context) (TitleLookup, bool) {
	ix := h.lookups.Titles()
	if ix == nil {
		respondError(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "title index not loaded")

		return nil, false
	}

	return ix, true
}

// Title handles GET /api/v1/titles/:id.
func (h *LookupHandler) Title(c *gin.Context) {
	ix, ok := h.titles(c)
	if !ok {
		return
	}

	id, err := parsePageID(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	title, ok := ix.Title(id)
	if !ok {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, models.ErrNodeNotFound.Error())

		return
	}

	c.JSON(http.StatusOK, models.TitleEntry{ID: id, Title: title})
}

// ID handles GET /api/v1/ids?title=. Underscores are accepted in place of
// spaces, as in page URLs.
func (h *LookupHandler) ID(c *gin.Context) {
	ix, ok := h.titles(c)
	if !ok {
		return
	}

	title, ok := queryTitle(c, "title")
	if !ok {
		return
	}

	id, found := ix.ID(title)
	if !found {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, models.ErrTitleNotFound.Error())

		return
	}

	c.JSON(http.StatusOK, models.TitleEntry{ID: id, Title: title})
}

type searchResponse struct {
	Prefix  string              `json:"prefix"`
	Results []models.TitleEntry `json:"results"`
}

// Search handles GET /api/v1/search?prefix=&limit=, a case-insensitive
// title prefix match.
func (h *LookupHandler) Search(c *gin.Context) {
	ix, ok := h.titles(c)
	if !ok {
		return
	}

	prefix, ok := queryTitle(c, "prefix")
	if !ok {
		return
	}

	limit := parseInt(c.DefaultQuery("limit", "20"), 20)

	results := ix.Prefix(prefix, limit)
	if results == nil {
		results = []models.TitleEntry{}
	}

	c.JSON(http.StatusOK, searchResponse{Prefix: prefix, Results: results})
}

func queryTitle(c *gin.Context, name string) (string, bool) {
	v := strings.TrimSpace(strings.ReplaceAll(c.Query(name), "_", " "))
	if v == "" {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, name+" is required")

		return "", false
	}

	if len(v) > maxTitleLength {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, models.ErrFieldTooLong(name, maxTitleLength).Error())

		return "", false
	}

	return v, true
}
