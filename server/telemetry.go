package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// telemetry holds the process-wide prometheus collectors the tick loop
// updates once per tick. The teacher has no metrics endpoint of its own;
// this is grounded on the retrieval pack's other realtime-server example,
// which exposes a prometheus registry the same way (spec 4.7 serverStats,
// an ambient concern carried regardless of the spec's Non-goals).
type telemetry struct {
	tickDuration   prometheus.Histogram
	players        prometheus.Gauge
	projectiles    prometheus.Gauge
	sandParticles  prometheus.Gauge
	protocolErrors prometheus.Counter
	droppedConns   prometheus.Counter
	workerTimeouts prometheus.Counter
}

func newTelemetry() *telemetry {
	return &telemetry{
		tickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "arena_tick_duration_seconds",
			Help:    "Wall time spent running one simulation tick.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		players: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "arena_players",
			Help: "Currently connected players.",
		}),
		projectiles: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "arena_projectiles",
			Help: "Live projectiles.",
		}),
		sandParticles: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "arena_sand_particles",
			Help: "Live sand particles.",
		}),
		protocolErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "arena_protocol_errors_total",
			Help: "Malformed or unrecognized inbound messages (spec 7).",
		}),
		droppedConns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "arena_dropped_connections_total",
			Help: "Subscribers disconnected, for any reason (spec 7).",
		}),
		workerTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "arena_worker_timeouts_total",
			Help: "Worker requests that fell back to in-thread computation (spec 5/7).",
		}),
	}
}

// serveMetrics starts the prometheus /metrics endpoint on its own port, kept
// separate from the game's HTTP/websocket port so scraping never contends
// with player traffic. port <= 0 disables it entirely.
func serveMetrics(port int) {
	if port <= 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	}()
}
