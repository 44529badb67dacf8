package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/middleware"
	"github.com/wikiroute/wikiroute/internal/ws"
)

// RouterDeps holds everything the router serves. Lookups and Hub may be nil;
// the endpoints backed by them answer 503. A nil Lookups is built from Titles
// and Graph.
type RouterDeps struct {
	Log         *logrus.Logger
	Hub         *ws.Hub
	Lookups     *Lookups
	Titles      TitleLookup
	Graph       GraphLookup
	CORSOrigins []string
	Version     string
}

// Router-level limits.
const (
	rateLimit = 100 // requests per second per IP
	rateBurst = 200 // token bucket burst size
	cacheFor  = 5 * time.Minute

	metricsPath = "/metrics"
)

func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders(cacheFor))
	r.Use(cors.New(cors.Config{
		AllowOrigins: deps.CORSOrigins,
		AllowMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		MaxAge:       1 * time.Hour,
	}))
	r.Use(middleware.ReadOnly())
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware(metricsPath))

	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
}

func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	lookups := deps.Lookups
	if lookups == nil {
		lookups = NewLookups(deps.Titles, deps.Graph)
	}

	health := NewHealthHandler(lookups, deps.Hub, log, deps.Version)
	lookup := NewLookupHandler(lookups, log)
	graph := NewGraphHandler(lookups, log)

	api.GET("/health", health.Health)

	api.GET("/titles/:id", lookup.Title)
	api.GET("/ids", lookup.ID)
	api.GET("/search", lookup.Search)

	api.GET("/nodes/:id/neighbors", graph.Neighbors)
	api.GET("/stats", graph.Stats)

	api.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins))
}

// NewRouter creates the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
