// Package metrics exports league activity counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "musicleague"

// Metrics implements league.Metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	roundsCreated     prometheus.Counter
	roundTransitions  *prometheus.CounterVec
	submissions       *prometheus.CounterVec
	votes             prometheus.Counter
	sideEffectErrors  *prometheus.CounterVec
	notificationsSent *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		roundsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_created_total",
			Help:      "Rounds opened across all leagues.",
		}),
		roundTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "round_transitions_total",
			Help:      "Round status changes by target status.",
		}, []string{"status"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Recorded submissions; updated is true when an earlier entry was replaced.",
		}, []string{"updated"}),
		votes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Votes cast, including changed votes.",
		}),
		sideEffectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Best-effort side effects that failed, by kind.",
		}, []string{"kind"}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Webhook notifications by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.roundsCreated,
		m.roundTransitions,
		m.submissions,
		m.votes,
		m.sideEffectErrors,
		m.notificationsSent,
	)
	return m
}

func (m *Metrics) RoundCreated() { m.roundsCreated.Inc() }

func (m *Metrics) RoundAdvanced(to models.RoundStatus) {
	m.roundTransitions.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) SubmissionRecorded(updated bool) {
	m.submissions.WithLabelValues(strconv.FormatBool(updated)).Inc()
}

func (m *Metrics) VoteCast() { m.votes.Inc() }

func (m *Metrics) SideEffectFailed(kind string) {
	m.sideEffectErrors.WithLabelValues(kind).Inc()
}

// NotificationSent records a webhook delivery outcome: sent, failed or dropped.
func (m *Metrics) NotificationSent(outcome string) {
	m.notificationsSent.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
