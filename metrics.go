package chatclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "liho_client",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	roomFetchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "liho_client",
			Name:      "room_fetches_total",
			Help:      "Room list fetches that reached the network.",
		},
	)

	messagePagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "liho_client",
			Name:      "message_pages_total",
			Help:      "Message pages fetched from the backend.",
		},
	)
)
