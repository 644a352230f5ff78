package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the Prometheus collectors exposed on /metrics. Each Server
// registers its own collectors against a private registry so multiple
// Servers in the same process (as in tests) don't collide on the default
// global one.
type metrics struct {
	registry          *prometheus.Registry
	queueDepth        *prometheus.GaugeVec
	admissionRejected prometheus.Counter
	jobDuration       *prometheus.HistogramVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()

	queueDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dcrx_kv",
		Name:      "queue_depth",
		Help:      "Number of jobs currently held by the queue, by lane.",
	}, []string{"lane"})

	admissionRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dcrx_kv",
		Name:      "admission_rejections_total",
		Help:      "Total uploads refused with a server limit error.",
	})

	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dcrx_kv",
		Name:      "job_duration_seconds",
		Help:      "Time spent servicing a job, from the queue call to the response.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	registry.MustRegister(queueDepth, admissionRejected, jobDuration)

	return &metrics{
		registry:          registry,
		queueDepth:        queueDepth,
		admissionRejected: admissionRejected,
		jobDuration:       jobDuration,
	}
}

// observeQueueDepth refreshes the running/pending gauges from a live Stats
// snapshot. Called lazily from request handlers rather than on a timer,
// since the queue already serializes Stats behind its own mutex.
func (m *metrics) observeQueueDepth(running, pending int) {
	m.queueDepth.WithLabelValues("running").Set(float64(running))
	m.queueDepth.WithLabelValues("pending").Set(float64(pending))
}

func (m *metrics) observeJobDuration(operation, outcome string, start time.Time) {
	m.jobDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
