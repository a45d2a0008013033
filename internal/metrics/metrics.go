// Package metrics owns the serving counters. Callers hold a Sink handle
// rather than mutating package-level state; counter names stay stable
// because external dashboards key on them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "driftgate"

// Sink exposes the two serving counters. Increments are atomic, so totals
// under concurrent requests are exact, not racy approximations.
type Sink struct {
	predictions prometheus.Counter
	drift       prometheus.Counter
}

// NewSink registers the counters on reg and returns the handle.
func NewSink(reg prometheus.Registerer) *Sink {
	s := &Sink{
		predictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions served.",
		}),
		drift: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drift_total",
			Help:      "Predictions whose input was flagged as drifted.",
		}),
	}
	reg.MustRegister(s.predictions, s.drift)
	return s
}

// Prediction counts one served prediction.
func (s *Sink) Prediction() { s.predictions.Inc() }

// Drift counts one drift-flagged prediction.
func (s *Sink) Drift() { s.drift.Inc() }

// PredictionCounter exposes the counter for test assertions.
func (s *Sink) PredictionCounter() prometheus.Counter { return s.predictions }

// DriftCounter exposes the counter for test assertions.
func (s *Sink) DriftCounter() prometheus.Counter { return s.drift }
