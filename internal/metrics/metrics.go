package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the platform's Prometheus collectors.
type Metrics struct {
	AuthorizationsTotal *prometheus.CounterVec
	VotesTotal          *prometheus.CounterVec
	VoteRetriesTotal    prometheus.Counter
	TrustRecomputeTotal *prometheus.CounterVec
	TrustQueueDropped   prometheus.Counter
}

// New creates and registers all collectors on registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthorizationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_authorizations_total",
				Help: "Authorization checks by check name and outcome",
			},
			[]string{"check", "allowed"},
		),
		VotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_votes_total",
				Help: "Applied votes by target kind and effect",
			},
			[]string{"target", "effect"},
		),
		VoteRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agora_vote_retries_total",
				Help: "Votes retried after a uniqueness conflict",
			},
		),
		TrustRecomputeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_trust_recompute_total",
				Help: "Trust score recomputations by result",
			},
			[]string{"result"},
		),
		TrustQueueDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agora_trust_queue_dropped_total",
				Help: "Trust recomputations skipped because the queue was full",
			},
		),
	}

	registry.MustRegister(
		m.AuthorizationsTotal,
		m.VotesTotal,
		m.VoteRetriesTotal,
		m.TrustRecomputeTotal,
		m.TrustQueueDropped,
	)
	return m
}

// ObserveAuthorization implements rbac.Observer.
func (m *Metrics) ObserveAuthorization(check string, allowed bool) {
	m.AuthorizationsTotal.WithLabelValues(check, strconv.FormatBool(allowed)).Inc()
}

func (m *Metrics) ObserveVote(target, effect string) {
	m.VotesTotal.WithLabelValues(target, effect).Inc()
}

func (m *Metrics) ObserveVoteRetry() {
	m.VoteRetriesTotal.Inc()
}

func (m *Metrics) ObserveTrustRecompute(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.TrustRecomputeTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTrustDropped() {
	m.TrustQueueDropped.Inc()
}
