package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InspectedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatewatch_inspected_requests_total",
			Help: "Requests that ran the full security inspection pipeline",
		},
	)

	ThreatsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewatch_threats_detected_total",
			Help: "Threat findings by type and severity",
		},
		[]string{"type", "severity"},
	)

	BotDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewatch_bot_detections_total",
			Help: "Bot classifier matches by category",
		},
		[]string{"category"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewatch_rate_limited_total",
			Help: "Requests rejected with 429 by limiter kind",
		},
		[]string{"limiter"},
	)

	LogWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatewatch_log_write_failures_total",
			Help: "Security log store writes that failed",
		},
	)

	LogQueueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatewatch_log_queue_dropped_total",
			Help: "Security events dropped because the write queue was full",
		},
	)

	InspectionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gatewatch_inspection_duration_seconds",
			Help:    "Time spent in the synchronous inspection pipeline",
			Buckets: prometheus.DefBuckets,
		},
	)
)
