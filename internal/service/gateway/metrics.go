package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zhouzirui/serene/backend/internal/analysis/risk"
	"github.com/zhouzirui/serene/backend/internal/model/chat"
)

// Metrics counts turn outcomes. A nil *Metrics is valid and records nothing.
// Labels are bounded enums; no content ever becomes a label.
type Metrics struct {
	turns            *prometheus.CounterVec
	riskLevels       *prometheus.CounterVec
	rejected         *prometheus.CounterVec
	completionErrors prometheus.Counter
	classifierErrors prometheus.Counter
	completion       prometheus.Histogram
}

// NewMetrics registers the gateway collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "serene_turns_total",
			Help: "Turns answered, by result mode.",
		}, []string{"mode"}),
		riskLevels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "serene_risk_levels_total",
			Help: "Risk classifications of the last user message, by level.",
		}, []string{"level"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "serene_rejected_turns_total",
			Help: "Turns rejected by validation, by kind.",
		}, []string{"kind"}),
		completionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "serene_completion_errors_total",
			Help: "Completion service calls that failed or timed out.",
		}),
		classifierErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "serene_classifier_errors_total",
			Help: "Classifier failures that were escalated to the crisis path.",
		}),
		completion: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "serene_completion_duration_seconds",
			Help:    "Latency of completion service calls.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}

	reg.MustRegister(m.turns, m.riskLevels, m.rejected, m.completionErrors, m.classifierErrors, m.completion)
	return m
}

func (m *Metrics) observeTurn(mode chat.Mode) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) observeRisk(level risk.Level) {
	if m == nil {
		return
	}
	m.riskLevels.WithLabelValues(string(level)).Inc()
}

func (m *Metrics) observeRejected(kind chat.ValidationKind) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.completionErrors.Inc()
}

func (m *Metrics) observeClassifierError() {
	if m == nil {
		return
	}
	m.classifierErrors.Inc()
}

func (m *Metrics) observeCompletion(d time.Duration) {
	if m == nil {
		return
	}
	m.completion.Observe(d.Seconds())
}
