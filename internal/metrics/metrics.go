package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqs_poller_messages_received_total",
			Help: "Total messages received from SQS",
		}, []string{"queue"})

	MessagesDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqs_poller_messages_deleted_total",
			Help: "Total messages deleted after successful invocation",
		}, []string{"queue"})

	Invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqs_poller_invocations_total",
			Help: "Total consumer invocations by result",
		}, []string{"queue", "result"}) // success, failure

	InvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqs_poller_invocation_seconds",
			Help:    "Histogram of consumer invocation duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue"})

	CycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqs_poller_cycle_seconds",
			Help:    "Histogram of polling cycle duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue"})

	CycleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqs_poller_cycle_errors_total",
			Help: "Total polling cycles that ended with a recovered error",
		}, []string{"queue"})

	ProvisionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqs_poller_provision_failures_total",
			Help: "Total queues whose creation failed after all retries",
		}, []string{"queue"})

	PendingTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sqs_poller_scheduler_pending_tasks",
			Help: "Current number of cycles waiting for dispatch",
		},
	)
)

func Setup() {
	prometheus.MustRegister(MessagesReceived)
	prometheus.MustRegister(MessagesDeleted)
	prometheus.MustRegister(Invocations)
	prometheus.MustRegister(InvocationDuration)
	prometheus.MustRegister(CycleDuration)
	prometheus.MustRegister(CycleErrors)
	prometheus.MustRegister(ProvisionFailures)
	prometheus.MustRegister(PendingTasks)
}
