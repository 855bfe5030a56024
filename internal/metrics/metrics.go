package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcome labels.
const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
	StatusFailed  = "failed"
)

var (
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmvbd_chat_requests_total",
			Help: "Chat requests handled, by routed agent and outcome",
		},
		[]string{"agent", "status"},
	)

	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tmvbd_orders_created_total",
			Help: "Personalized orders synthesized",
		},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tmvbd_generation_duration_seconds",
			Help:    "Latency of generation backend calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"backend", "outcome"},
	)

	GenerationSlotsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tmvbd_generation_slots_in_use",
			Help: "Generation calls currently holding a concurrency slot",
		},
	)
)
