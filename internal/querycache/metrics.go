package querycache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liho_client",
		Subsystem: "querycache",
		Name:      "hits_total",
		Help:      "Gets served fresh from cache.",
	})

	missesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liho_client",
		Subsystem: "querycache",
		Name:      "misses_total",
		Help:      "Gets that started a foreground fetch chain.",
	})

	staleServedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liho_client",
		Subsystem: "querycache",
		Name:      "stale_served_total",
		Help:      "Gets served a stale value while revalidating.",
	})

	dedupJoinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liho_client",
		Subsystem: "querycache",
		Name:      "dedup_joins_total",
		Help:      "Gets that joined an in-flight fetch.",
	})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liho_client",
		Subsystem: "querycache",
		Name:      "retries_total",
		Help:      "Automatic retries across all fetch chains.",
	})

	discardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liho_client",
		Subsystem: "querycache",
		Name:      "superseded_discards_total",
		Help:      "Completed chains discarded because a newer chain owned the key.",
	})
)
