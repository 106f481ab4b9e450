package host

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	invocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sandbox",
		Subsystem: "host",
		Name:      "invocations_total",
		Help:      "Total number of top-level host function invocations.",
	})

	rollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sandbox",
		Subsystem: "host",
		Name:      "rollbacks_total",
		Help:      "Total number of frame rollbacks.",
	})

	eventsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sandbox",
		Subsystem: "host",
		Name:      "events_recorded_total",
		Help:      "Total number of recorded events, including later rolled back ones.",
	})
)
