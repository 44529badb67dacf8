// Package api serves the read-only id/title lookup API over a built graph.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/ws"
)

// HealthHandler serves the health endpoint.
type HealthHandler struct {
	lookups   *Lookups
	hub       *ws.Hub
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. hub may be nil.
func NewHealthHandler(lookups *Lookups, hub *ws.Hub, log *logrus.Logger, version string) *HealthHandler {
	return &HealthHandler{
		lookups:   lookups,
		hub:       hub,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Titles        string  `json:"titles"`
	Graph         string  `json:"graph"`
	Building      bool    `json:"building"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Health handles GET /api/v1/health. The status is "degraded" while a build
// is running or either lookup source is missing; the API still answers what
// it can.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Titles:        "loaded",
		Graph:         "loaded",
		Building:      h.lookups.Building(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.lookups.Titles() == nil {
		resp.Titles = "not_loaded"
		resp.Status = "degraded"
	}

	if h.lookups.Graph() == nil {
		resp.Graph = "not_loaded"
		resp.Status = "degraded"
	}

	if resp.Building {
		resp.Status = "degraded"
	}

	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}

	c.JSON(http.StatusOK, resp)
}
