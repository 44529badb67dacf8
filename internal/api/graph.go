package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/models"
)

// GraphHandler serves neighbor and summary queries over the exported graph.
type GraphHandler struct {
	lookups *Lookups
	log     *logrus.Logger
}

// NewGraphHandler creates a GraphHandler. When no title index is loaded,
// neighbor results carry ids only.
func NewGraphHandler(lookups *Lookups, log *logrus.Logger) *GraphHandler {
	return &GraphHandler{lookups: lookups, log: log}
}

// Neighbors handles GET /api/v1/nodes/:id/neighbors?limit=.
func (h *GraphHandler) Neighbors(c *gin.Context) {
	g := h.lookups.Graph()
	if g == nil {
		respondError(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "graph not loaded")

		return
	}

	id, err := parsePageID(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	limit := parseInt(c.DefaultQuery("limit", "100"), 100)

	result := models.NeighborResult{
		Node:     models.TitleEntry{ID: id},
		Degree:   g.Degree(id),
		Outgoing: g.Out(id, limit),
		Incoming: g.In(id, limit),
	}

	if titles := h.lookups.Titles(); titles != nil {
		result.Node.Title, _ = titles.Title(id)
	}

	if result.Degree.Total() == 0 && result.Node.Title == "" {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, models.ErrNodeNotFound.Error())

		return
	}

	c.JSON(http.StatusOK, result)
}

// Stats handles GET /api/v1/stats.
func (h *GraphHandler) Stats(c *gin.Context) {
	var s models.GraphStats

	if g := h.lookups.Graph(); g != nil {
		s.Nodes = g.Nodes()
		s.Edges = g.Len()
		s.ReciprocalEdges = g.Reciprocal()
	}

	if titles := h.lookups.Titles(); titles != nil {
		s.Titles = titles.Len()
	}

	c.JSON(http.StatusOK, s)
}
