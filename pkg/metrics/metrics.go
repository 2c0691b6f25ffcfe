package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "toolroute"

// Collector records classification and reasoning metrics. A nil *Collector
// is valid and records nothing.
type Collector struct {
	classifications *prometheus.CounterVec
	confidence      *prometheus.HistogramVec
	stageDuration   *prometheus.HistogramVec
	reasoningRounds prometheus.Histogram
	modelErrors     *prometheus.CounterVec
	malformed       prometheus.Counter
	dispatches      *prometheus.CounterVec
}

// New registers the collector's metrics on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		// Labels: method (rule, intent, sequential, fallback), tool
		classifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Classified requests by winning method and tool",
		}, []string{"method", "tool"}),
		confidence: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_confidence",
			Help:      "Distribution of final classification confidence",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}, []string{"method"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each classification stage",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"stage"}),
		reasoningRounds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reasoning",
			Name:      "rounds",
			Help:      "Rounds used per reasoning session",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10, 15, 20},
		}),
		// Labels: status (HTTP status, or "0" when no response was received)
		modelErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reasoning",
			Name:      "model_call_errors_total",
			Help:      "Failed completion model calls",
		}, []string{"status"}),
		malformed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reasoning",
			Name:      "malformed_outputs_total",
			Help:      "Model replies that were not valid round JSON",
		}),
		// Labels: tool, outcome (ok, error, confirmation_required, unknown_tool)
		dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Dispatch attempts by tool and outcome",
		}, []string{"tool", "outcome"}),
	}
}

// ObserveClassification records the final result of one classification.
func (c *Collector) ObserveClassification(method, tool string, confidence float64) {
	if c == nil {
		return
	}
	c.classifications.WithLabelValues(method, tool).Inc()
	c.confidence.WithLabelValues(method).Observe(confidence)
}

// ObserveStage records how long a classification stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRounds records the length of a finished reasoning session.
func (c *Collector) ObserveRounds(n int) {
	if c == nil {
		return
	}
	c.reasoningRounds.Observe(float64(n))
}

// ModelCallFailed counts a failed model call.
func (c *Collector) ModelCallFailed(status int) {
	if c == nil {
		return
	}
	c.modelErrors.WithLabelValues(strconv.Itoa(status)).Inc()
}

// MalformedOutput counts a recovered malformed model reply.
func (c *Collector) MalformedOutput() {
	if c == nil {
		return
	}
	c.malformed.Inc()
}

// ObserveDispatch counts one dispatch attempt.
func (c *Collector) ObserveDispatch(tool, outcome string) {
	if c == nil {
		return
	}
	c.dispatches.WithLabelValues(tool, outcome).Inc()
}
