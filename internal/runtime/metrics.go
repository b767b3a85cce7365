package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregate_events_appended_total",
			Help: "Domain events appended to the event log.",
		},
		[]string{"aggregate_type", "event_type"},
	)

	snapshotsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregate_snapshots_written_total",
			Help: "Aggregate snapshots written to the snapshot store.",
		},
		[]string{"aggregate_type"},
	)

	activeInstances = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aggregate_active_instances",
			Help: "Aggregate instances currently held in memory.",
		},
		[]string{"aggregate_type"},
	)
)
