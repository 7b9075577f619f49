package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmittedGreetings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "greetings",
		Subsystem: "relay",
		Name:      "submitted_total",
		Help:      "Number of greeting transactions accepted by the node.",
	}, []string{"from_chain", "to_chain"})
	FailedGreetings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "greetings",
		Subsystem: "relay",
		Name:      "failed_total",
		Help:      "Number of greetings that could not be submitted.",
	}, []string{"from_chain", "to_chain"})
	ReconciledEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "greetings",
		Subsystem: "relay",
		Name:      "reconciled_events_total",
		Help:      "Number of FestivalDataSent events merged into the recent list, by outcome.",
	}, []string{"outcome"})
	InvalidPayloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "greetings",
		Subsystem: "relay",
		Name:      "invalid_payloads_total",
		Help:      "Number of festival data payloads that could not be parsed.",
	}, []string{"source"})
	SendingGreetings = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "greetings",
		Subsystem: "relay",
		Name:      "sending",
		Help:      "Number of greeting transactions currently being submitted.",
	})
)
