package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LatestHeadBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "greetings",
		Subsystem: "contract",
		Name:      "latest_head_block",
		Help:      "Shows the latest fetched head block for the sender contract. Logs up to this block are waiting to be fetched.",
	}, []string{"chain_id", "address"})
	LatestFetchedBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "greetings",
		Subsystem: "contract",
		Name:      "latest_fetched_block",
		Help:      "Shows the latest fetched block for the sender contract. Logs up to this block are already fetched and saved to the DB.",
	}, []string{"chain_id", "address"})
	LatestProcessedBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "greetings",
		Subsystem: "contract",
		Name:      "latest_processed_block",
		Help:      "Shows the latest processed block for the sender contract. Events up to this block are reconciled with the greetings.",
	}, []string{"chain_id", "address"})
	SyncedContract = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "greetings",
		Subsystem: "contract",
		Name:      "synced",
		Help:      "Shows 1 if the sender contract is considered as synced up to chain head.",
	}, []string{"chain_id", "address"})
)
