package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MaintenanceJobs records runs of the scheduled maintenance jobs.
type MaintenanceJobs struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

func NewMaintenanceJobs(reg prometheus.Registerer) *MaintenanceJobs {
	if reg == nil {
		return &MaintenanceJobs{}
	}
	m := &MaintenanceJobs{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_maintenance_job_duration_seconds",
			Help:    "Duration of maintenance jobs in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_maintenance_job_runs_total",
			Help: "Maintenance job executions by outcome.",
		}, []string{"job", "outcome"}),
	}
	reg.MustRegister(m.duration, m.runs)
	return m
}

// ObserveRun records one execution of job and whether it failed.
func (m *MaintenanceJobs) ObserveRun(job string, d time.Duration, err error) {
	if m == nil || m.duration == nil || m.runs == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
	m.runs.WithLabelValues(normalizeLabel(job), outcome).Inc()
}
