package platform

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	evaluations    prometheus.Counter
	accepted       prometheus.Counter
	rejected       prometheus.Counter
	nonFinite      prometheus.Counter
	migrations     prometheus.Counter
	lostBatches    prometheus.Counter
	tunedConstants prometheus.Counter
}

// newMetrics builds the run counters. A nil registerer yields working
// but unregistered collectors.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		evaluations: f.NewCounter(prometheus.CounterOpts{
			Name: "symvolve_evaluations_total",
			Help: "Number of candidate expression evaluations.",
		}),
		accepted: f.NewCounter(prometheus.CounterOpts{
			Name: "symvolve_accepted_total",
			Help: "Number of candidates accepted into a population.",
		}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "symvolve_rejected_total",
			Help: "Number of candidates rejected by the acceptance rule.",
		}),
		nonFinite: f.NewCounter(prometheus.CounterOpts{
			Name: "symvolve_nonfinite_total",
			Help: "Number of candidates discarded for non-finite output.",
		}),
		migrations: f.NewCounter(prometheus.CounterOpts{
			Name: "symvolve_migrations_total",
			Help: "Number of members copied between populations.",
		}),
		lostBatches: f.NewCounter(prometheus.CounterOpts{
			Name: "symvolve_lost_batches_total",
			Help: "Number of cycle batches discarded after a worker failure or timeout.",
		}),
		tunedConstants: f.NewCounter(prometheus.CounterOpts{
			Name: "symvolve_tuned_members_total",
			Help: "Number of members improved by constant optimization.",
		}),
	}
}
