package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NewAlertStuckGreeting = func(chainID string) *prometheus.GaugeVec {
		return promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "alert",
			Subsystem:   "greetings",
			Name:        "stuck_greeting",
			Help:        "Shows sent greetings for which no FestivalDataSent event was observed. Value is the age in seconds.",
			ConstLabels: prometheus.Labels{"chain_id": chainID},
		}, []string{"greeting_id", "tx_hash", "from_chain", "to_chain"})
	}
	NewAlertFailedGreeting = func(chainID string) *prometheus.GaugeVec {
		return promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "alert",
			Subsystem:   "greetings",
			Name:        "failed_greeting",
			Help:        "Shows recent greetings which could not be submitted. Value is the age in seconds.",
			ConstLabels: prometheus.Labels{"chain_id": chainID},
		}, []string{"greeting_id", "from_chain", "to_chain", "error"})
	}
)
