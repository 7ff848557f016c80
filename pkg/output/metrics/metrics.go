package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "elastic_output_events_received_total",
		Help: "Total number of events received from the source queue.",
	})

	EventsIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "elastic_output_events_indexed_total",
		Help: "Total number of events successfully written to Elasticsearch.",
	})

	EventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "elastic_output_events_rejected_total",
		Help: "Total number of events returned to the source queue after a failed submission.",
	})

	EventsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "elastic_output_events_dead_lettered_total",
		Help: "Total number of undecodable frames moved to the dead-letter queue.",
	})

	FlattenDecodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elastic_output_flatten_decode_failures_total",
		Help: "Total number of flatten-listed fields whose string value was not valid JSON, labelled by field.",
	}, []string{"field"})

	IndexDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "elastic_output_index_duration_ms",
		Help:    "Latency of single-document index requests in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)
