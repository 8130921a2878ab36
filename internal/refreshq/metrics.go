package refreshq

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "liho_client",
			Subsystem: "refreshq",
			Name:      "submissions_total",
			Help:      "Refresh jobs accepted into a shard queue.",
		},
		[]string{"shard"},
	)

	queueFullTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "liho_client",
			Subsystem: "refreshq",
			Name:      "queue_full_total",
			Help:      "Submissions rejected with backpressure.",
		},
		[]string{"shard"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "liho_client",
			Subsystem: "refreshq",
			Name:      "queue_depth",
			Help:      "Jobs currently waiting per shard.",
		},
		[]string{"shard"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "liho_client",
			Subsystem: "refreshq",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one refresh job.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"shard"},
	)
)

func labelFor(shard int) string { return strconv.Itoa(shard) }
