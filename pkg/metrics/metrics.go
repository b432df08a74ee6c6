package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	subsystem = "migration_engine"

	rowsProcessedTotal = "rows_processed_total"
	jobsFinishedTotal  = "jobs_finished_total"
	rollbacksTotal     = "rollbacks_total"

	jobTypeLabel   = "job_type"
	rowResultLabel = "result"
	jobStatusLabel = "status"
)

// Row results reported by the orchestrator loop.
const (
	RowResultImported = "imported"
	RowResultFailed   = "failed"
	RowResultSkipped  = "skipped"
)

// Rollback outcomes.
const (
	RollbackSucceeded = "succeeded"
	RollbackFailed    = "failed"
)

var rowsProcessedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      rowsProcessedTotal,
		Help:      "number of source rows processed, partitioned by job type and per-row result",
	},
	[]string{jobTypeLabel, rowResultLabel},
)

var jobsFinishedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      jobsFinishedTotal,
		Help:      "number of migration jobs that reached a terminal status",
	},
	[]string{jobTypeLabel, jobStatusLabel},
)

var rollbacksTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      rollbacksTotal,
		Help:      "number of rollback attempts, partitioned by outcome",
	},
	[]string{jobTypeLabel, rowResultLabel},
)

func IncreaseRowsProcessedMetric(jobType string, result string, count int) {
	rowsProcessedTotalMetric.With(prometheus.Labels{
		jobTypeLabel:   jobType,
		rowResultLabel: result,
	}).Add(float64(count))
}

func IncreaseJobsFinishedMetric(jobType string, status string) {
	jobsFinishedTotalMetric.With(prometheus.Labels{
		jobTypeLabel:   jobType,
		jobStatusLabel: status,
	}).Inc()
}

func IncreaseRollbacksMetric(jobType string, outcome string) {
	rollbacksTotalMetric.With(prometheus.Labels{
		jobTypeLabel:   jobType,
		rowResultLabel: outcome,
	}).Inc()
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(rowsProcessedTotalMetric)
	reg.MustRegister(jobsFinishedTotalMetric)
	reg.MustRegister(rollbacksTotalMetric)
}
