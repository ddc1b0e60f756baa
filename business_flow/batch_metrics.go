package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "banning_batches_started_total",
			Help: "Total number of batch runs started or resumed",
		},
	)

	// Finished batches partitioned by terminal status
	batchesFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banning_batches_finished_total",
			Help: "Total number of batch runs that reached a terminal status",
		},
		[]string{"status"},
	)

	// Executed items partitioned by outcome (success, failed, storage_fault)
	batchItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banning_batch_items_total",
			Help: "Total number of batch items executed",
		},
		[]string{"outcome"},
	)

	batchesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "banning_batches_running",
			Help: "Number of batch runs currently executing in this process",
		},
	)
)

const (
	itemOutcomeSuccess      = "success"
	itemOutcomeFailed       = "failed"
	itemOutcomeStorageFault = "storage_fault"
)
