package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wikiroute/wikiroute/internal/metrics"
)

// unmatchedRoute labels requests no route matched, so arbitrary paths cannot
// grow the label set.
const unmatchedRoute = "unmatched"

// PrometheusMiddleware records wikiroute_http_requests_total and
// wikiroute_http_request_duration_seconds by route pattern. Scrapes of
// metricsPath are not recorded. A websocket upgrade is counted but its
// duration is the lifetime of the event stream, so it stays out of the
// latency histogram.
func PrometheusMiddleware(metricsPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == metricsPath {
			c.Next()

			return
		}

		start := time.Now()
		upgrade := c.IsWebsocket()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		labels := []string{c.Request.Method, route, strconv.Itoa(c.Writer.Status())}

		metrics.RequestsTotal.WithLabelValues(labels...).Inc()

		if !upgrade {
			metrics.RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		}
	}
}
