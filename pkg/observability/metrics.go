package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Queue metrics
	queueEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "genforge_queue_enqueued_total",
			Help: "Total number of work items accepted by the queue",
		},
	)

	queueAckedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "genforge_queue_acked_total",
			Help: "Total number of work items acknowledged",
		},
	)

	queueNackedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "genforge_queue_nacked_total",
			Help: "Total number of failed delivery attempts",
		},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "genforge_queue_depth",
			Help: "Number of work items by status",
		},
		[]string{"status"},
	)

	// Pipeline metrics
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genforge_pipeline_runs_total",
			Help: "Total number of pipeline runs by terminal status",
		},
		[]string{"status"},
	)

	agentExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genforge_agent_execution_duration_seconds",
			Help:    "Agent execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"agent"},
	)

	// Backup metrics
	backupOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genforge_backup_operations_total",
			Help: "Total number of backup store operations",
		},
		[]string{"operation", "status"},
	)

	initOnce sync.Once
)

// InitMetrics registers the Prometheus collectors. Safe to call more than
// once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			queueEnqueuedTotal,
			queueAckedTotal,
			queueNackedTotal,
			queueDepth,
			pipelineRunsTotal,
			agentExecutionDuration,
			backupOperationsTotal,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordEnqueue counts an accepted work item.
func RecordEnqueue() {
	queueEnqueuedTotal.Inc()
}

// RecordAck counts an acknowledged work item.
func RecordAck() {
	queueAckedTotal.Inc()
}

// RecordNack counts a failed delivery attempt.
func RecordNack() {
	queueNackedTotal.Inc()
}

// SetQueueDepth sets the per-status depth gauge.
func SetQueueDepth(status string, count int) {
	queueDepth.WithLabelValues(status).Set(float64(count))
}

// RecordPipelineRun counts a completed pipeline run by terminal status.
func RecordPipelineRun(status string) {
	pipelineRunsTotal.WithLabelValues(status).Inc()
}

// RecordAgentExecution records one agent invocation's duration.
func RecordAgentExecution(agent string, duration time.Duration) {
	agentExecutionDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordBackupOperation counts a backup store operation.
func RecordBackupOperation(operation, status string) {
	backupOperationsTotal.WithLabelValues(operation, status).Inc()
}
