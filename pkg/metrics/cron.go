package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics tracks scheduled job runs by job name.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	items    *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron collectors on reg. A nil reg yields a
// recorder that drops everything.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return nil
	}
	f := factory(reg)
	return &CronJobMetrics{
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Wall time of one cron job run.",
			Buckets:   []float64{.05, .25, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cron",
			Name:      "job_runs_total",
			Help:      "Cron job runs by outcome.",
		}, []string{"job", "outcome"}),
		items: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cron",
			Name:      "job_items_total",
			Help:      "Records a cron job changed, e.g. orders the sweeper canceled.",
		}, []string{"job"}),
	}
}

func (c *CronJobMetrics) ObserveDuration(job string, d time.Duration) {
	if c != nil {
		c.duration.WithLabelValues(label(job)).Observe(d.Seconds())
	}
}

func (c *CronJobMetrics) IncSuccess(job string) { c.countRun(job, "success") }

func (c *CronJobMetrics) IncFailure(job string) { c.countRun(job, "failure") }

func (c *CronJobMetrics) countRun(job, outcome string) {
	if c != nil {
		c.runs.WithLabelValues(label(job), outcome).Inc()
	}
}

func (c *CronJobMetrics) AddItems(job string, n int) {
	if c != nil && n > 0 {
		c.items.WithLabelValues(label(job)).Add(float64(n))
	}
}
