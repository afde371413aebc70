package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch and lifecycle counters exposed on /metrics.
var (
	OffersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_offers_sent_total",
		Help: "Ride offers pushed to drivers",
	})

	AcceptWins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_accept_wins_total",
		Help: "Accept attempts that won the assignment race",
	})

	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_accept_conflicts_total",
		Help: "Accept attempts rejected because the ride was already assigned",
	})

	SearchTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_search_timeouts_total",
		Help: "Ride searches that expired with no acceptor",
	})

	RidesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rides_completed_total",
		Help: "Rides that reached the completed state",
	})

	RidesCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rides_cancelled_total",
		Help: "Rides cancelled, by actor",
	}, []string{"actor"})
)
