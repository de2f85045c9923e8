package service

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records pipeline outcomes. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	enrollments   *prometheus.CounterVec
	verifications *prometheus.CounterVec
	similarity    prometheus.Histogram
	stageDuration *prometheus.HistogramVec
}

// NewMetrics registers the service collectors with reg. Collectors already
// registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxgate",
			Name:      "enrollments_total",
			Help:      "Enrollment attempts by outcome",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxgate",
			Name:      "verifications_total",
			Help:      "Verification attempts by outcome",
		}, []string{"outcome"}),
		similarity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxgate",
			Name:      "verification_similarity",
			Help:      "Cosine similarity of verification attempts that reached the comparison",
			Buckets:   prometheus.LinearBuckets(-1, 0.1, 21),
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voxgate",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Latency of each voice pipeline stage",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"stage"}),
	}
	if reg == nil {
		return m
	}

	m.enrollments = register(reg, m.enrollments)
	m.verifications = register(reg, m.verifications)
	m.similarity = register(reg, m.similarity)
	m.stageDuration = register(reg, m.stageDuration)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) enrollment(outcome string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) verification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeSimilarity(s float64) {
	if m == nil {
		return
	}
	m.similarity.Observe(s)
}

func (m *Metrics) stage(name string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

// outcome maps an error onto a low-cardinality label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, ErrInsufficientSignal):
		return "insufficient_signal"
	case IsClientError(err):
		return "invalid_request"
	default:
		return "error"
	}
}
