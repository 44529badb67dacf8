// Package metrics defines Prometheus metrics for wikiroute.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wikiroute_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiroute_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiroute_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wikiroute_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)

	RowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiroute_dump_rows_total",
			Help: "Dump rows tokenized, by stage",
		},
		[]string{"stage"},
	)

	MalformedRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiroute_malformed_rows_total",
			Help: "Rows skipped for having too few fields, by stage",
		},
		[]string{"stage"},
	)

	RedirectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiroute_redirects_total",
			Help: "Redirect candidates by resolution outcome",
		},
		[]string{"outcome"},
	)

	EdgesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiroute_edges_total",
			Help: "Edges processed, by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	RetainedNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wikiroute_retained_nodes",
			Help: "Size of the retained node set",
		},
	)

	GraphEdges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wikiroute_graph_edges",
			Help: "Distinct edges in the exported graph",
		},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wikiroute_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
		},
		[]string{"stage"},
	)

	StageRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiroute_stage_runs_total",
			Help: "Pipeline stage runs by result",
		},
		[]string{"stage", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal, WSConnections,
		RowsTotal, MalformedRowsTotal, RedirectsTotal, EdgesTotal,
		RetainedNodes, GraphEdges, StageDuration, StageRunsTotal,
	)
}

// WriteTextfile writes a snapshot of every registered metric in the text
// exposition format, for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}

	return nil
}
