package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisislink_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crisislink_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Tracking metrics
	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crisislink_active_rooms",
			Help: "Tracking rooms currently live",
		},
	)

	ActiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crisislink_active_subscribers",
			Help: "Connections subscribed across all rooms",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisislink_events_published_total",
			Help: "Events fanned out to room subscribers",
		},
		[]string{"type"},
	)

	TransitionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crisislink_transitions_rejected_total",
			Help: "State transitions rejected by the guard",
		},
	)

	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisislink_alerts_created_total",
			Help: "SOS alerts created",
		},
		[]string{"type"},
	)

	AlertsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisislink_alerts_resolved_total",
			Help: "Alerts reaching a terminal status",
		},
		[]string{"status"},
	)

	// Routing metrics
	RoutesComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisislink_routes_computed_total",
			Help: "Route computations by outcome",
		},
		[]string{"outcome"}, // "traffic", "fallback", "failed"
	)

	RouteComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crisislink_route_compute_duration_seconds",
			Help:    "Directions provider round-trip latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// Connection metrics
	AgentsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crisislink_agents_registered_total",
			Help: "Total identities registered",
		},
	)

	MessagesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crisislink_messages_relayed_total",
			Help: "Victim/responder chat messages relayed",
		},
	)

	SubscribersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crisislink_subscribers_dropped_total",
			Help: "Subscribers dropped for unresponsive delivery",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisislink_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
