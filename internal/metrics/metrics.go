package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the queue's Prometheus instruments. A nil *Collector is
// valid and records nothing, so library code never has to check.
type Collector struct {
	jobsEnqueued  prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    prometheus.Counter
	jobsInFlight  prometheus.Gauge
	jobsPending   prometheus.Gauge
	jobDuration   prometheus.Histogram
}

func NewCollector() *Collector {
	return &Collector{
		jobsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerbot_jobs_enqueued_total",
			Help: "Jobs added to the processing queue.",
		}),
		jobsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerbot_jobs_completed_total",
			Help: "Jobs that finished successfully.",
		}),
		jobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerbot_jobs_failed_total",
			Help: "Job attempts that ended in an error.",
		}),
		jobsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerbot_jobs_in_flight",
			Help: "Jobs currently executing.",
		}),
		jobsPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerbot_jobs_pending",
			Help: "Jobs waiting for a tick.",
		}),
		jobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerbot_job_duration_seconds",
			Help:    "Wall time of one job attempt.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (c *Collector) RecordEnqueue() {
	if c != nil {
		c.jobsEnqueued.Inc()
	}
}

func (c *Collector) RecordCompleted(seconds float64) {
	if c != nil {
		c.jobsCompleted.Inc()
		c.jobDuration.Observe(seconds)
	}
}

func (c *Collector) RecordFailed(seconds float64) {
	if c != nil {
		c.jobsFailed.Inc()
		c.jobDuration.Observe(seconds)
	}
}

func (c *Collector) SetInFlight(n int) {
	if c != nil {
		c.jobsInFlight.Set(float64(n))
	}
}

func (c *Collector) SetPending(n int) {
	if c != nil {
		c.jobsPending.Set(float64(n))
	}
}
