package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Claim outcomes used as the "outcome" label.
const (
	OutcomeGranted     = "granted"
	OutcomeLockedOut   = "locked_out"
	OutcomeConflict    = "conflict"
	OutcomeNoRewards   = "no_rewards"
	OutcomeUnknownUser = "unknown_user"
	OutcomeError       = "error"
)

// Metrics holds the Prometheus collectors of the claim engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	claims           *prometheus.CounterVec
	grantedPrimary   prometheus.Counter
	grantedSecondary prometheus.Counter
	claimDuration    prometheus.Histogram
	registrations    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daily_reward",
			Name:      "claim_attempts_total",
			Help:      "Claim attempts by outcome.",
		}, []string{"outcome"}),
		grantedPrimary: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "daily_reward",
			Name:      "granted_primary_total",
			Help:      "Primary amount credited through claims.",
		}),
		grantedSecondary: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "daily_reward",
			Name:      "granted_secondary_total",
			Help:      "Secondary amount credited through claims.",
		}),
		claimDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "daily_reward",
			Name:      "claim_duration_seconds",
			Help:      "Time spent in AttemptClaim, lock wait included.",
			Buckets:   prometheus.DefBuckets,
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "daily_reward",
			Name:      "registrations_total",
			Help:      "Accounts registered.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.claims, m.grantedPrimary, m.grantedSecondary, m.claimDuration, m.registrations)
	}
	return m
}

func (m *Metrics) observeClaim(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(outcome).Inc()
	m.claimDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeGrant(primary, secondary int64) {
	if m == nil {
		return
	}
	m.grantedPrimary.Add(float64(primary))
	m.grantedSecondary.Add(float64(secondary))
}

func (m *Metrics) observeRegistration() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}
