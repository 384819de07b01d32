package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records oracle, search and resilience activity. It
// satisfies ports.PipelineObserver and resilience.Observer.
type PipelineMetrics struct {
	service string

	oracleWords      *prometheus.CounterVec
	oracleDuration   prometheus.Histogram
	oracleErrors     prometheus.Counter
	sentences        prometheus.Counter
	hypothesesKept   prometheus.Histogram
	hypothesesPruned prometheus.Counter
	retries          *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
}

func NewPipelineMetrics(service string, reg prometheus.Registerer) *PipelineMetrics {
	labels := prometheus.Labels{"service": service}

	m := &PipelineMetrics{
		service: service,
		oracleWords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "pipeline",
				Name:        "words_total",
				Help:        "Words resolved to candidate lists by source.",
				ConstLabels: labels,
			},
			[]string{"source"},
		),
		oracleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "oracle",
			Name:        "batch_duration_seconds",
			Help:        "Oracle batch latency in seconds.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			ConstLabels: labels,
		}),
		oracleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "oracle",
			Name:        "batch_errors_total",
			Help:        "Oracle batches that failed or returned malformed output.",
			ConstLabels: labels,
		}),
		sentences: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "search",
			Name:        "sentences_total",
			Help:        "Sentences ranked.",
			ConstLabels: labels,
		}),
		hypothesesKept: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "search",
			Name:        "hypotheses_kept",
			Help:        "Hypotheses per sentence surviving the threshold.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13},
			ConstLabels: labels,
		}),
		hypothesesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "search",
			Name:        "hypotheses_pruned_total",
			Help:        "Hypotheses dropped by the threshold.",
			ConstLabels: labels,
		}),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "resilience",
				Name:        "retries_total",
				Help:        "Retried calls by operation.",
				ConstLabels: labels,
			},
			[]string{"operation"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "resilience",
				Name:        "breaker_open",
				Help:        "1 while the circuit breaker of an operation is not closed.",
				ConstLabels: labels,
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(
		m.oracleWords,
		m.oracleDuration,
		m.oracleErrors,
		m.sentences,
		m.hypothesesKept,
		m.hypothesesPruned,
		m.retries,
		m.breakerState,
	)
	return m
}

func (m *PipelineMetrics) ObserveCacheHits(hits int) {
	if hits > 0 {
		m.oracleWords.WithLabelValues("cache").Add(float64(hits))
	}
}

func (m *PipelineMetrics) ObserveOracleBatch(words int, seconds float64, err error) {
	if words == 0 {
		return
	}
	m.oracleDuration.Observe(seconds)
	if err != nil {
		m.oracleErrors.Inc()
		return
	}
	m.oracleWords.WithLabelValues("oracle").Add(float64(words))
}

func (m *PipelineMetrics) ObserveSentence(_ int, produced int, kept int) {
	m.sentences.Inc()
	m.hypothesesKept.Observe(float64(kept))
	if pruned := produced - kept; pruned > 0 {
		m.hypothesesPruned.Add(float64(pruned))
	}
}

func (m *PipelineMetrics) ObserveRetry(operation string) {
	m.retries.WithLabelValues(operation).Inc()
}

func (m *PipelineMetrics) ObserveBreakerState(operation string, state string) {
	value := 1.0
	if state == "closed" {
		value = 0
	}
	m.breakerState.WithLabelValues(operation).Set(value)
}
