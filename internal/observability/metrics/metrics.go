// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reading_timing"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Provider chain metrics
	TierHits       *prometheus.CounterVec
	TierMisses     *prometheus.CounterVec
	TierErrors     *prometheus.CounterVec
	FallbackDepth  *prometheus.HistogramVec
	WriteBacks     prometheus.Counter
	WriteBackFails prometheus.Counter

	// Local cache metrics
	CacheEntriesSwept   prometheus.Counter
	CacheEntriesCorrupt prometheus.Counter
	CacheOversizePuts   prometheus.Counter

	// Synthesis metrics
	SynthesisRequests prometheus.Counter
	SynthesisOutcomes *prometheus.CounterVec
	SynthesisLatency  prometheus.Histogram

	// Reconstruction metrics
	Reconstructions       *prometheus.CounterVec
	ReconstructionRejects prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	SyncSessionsActive prometheus.Gauge
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TierHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_hits_total",
			Help:      "Timing data lookups answered by a provider tier",
		}, []string{"tier"}),
		TierMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_misses_total",
			Help:      "Timing data lookups that missed a provider tier",
		}, []string{"tier"}),
		TierErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_errors_total",
			Help:      "Transport or timeout failures swallowed per tier",
		}, []string{"tier"}),
		FallbackDepth: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fallback_depth",
			Help:      "How many tiers a lookup consulted before resolving",
			Buckets:   []float64{1, 2, 3},
		}, []string{"outcome"}),
		WriteBacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_backs_total",
			Help:      "Successful write-backs into the local cache tier",
		}),
		WriteBackFails: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_back_failures_total",
			Help:      "Write-backs that failed and were swallowed",
		}),

		CacheEntriesSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_entries_swept_total",
			Help:      "Expired entries removed by periodic sweeps",
		}),
		CacheEntriesCorrupt: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_entries_corrupt_total",
			Help:      "Malformed cache entries removed on read or sweep",
		}),
		CacheOversizePuts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_oversize_puts_total",
			Help:      "Cache writes exceeding the per-item size budget",
		}),

		SynthesisRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_requests_total",
			Help:      "On-demand synthesis requests sent",
		}),
		SynthesisOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_outcomes_total",
			Help:      "Terminal synthesis request states",
		}, []string{"state"}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_seconds",
			Help:      "End-to-end latency of the synthesis fallback path",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45},
		}),

		Reconstructions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconstructions_total",
			Help:      "Boundary reconstructions by timing source",
		}, []string{"source"}),
		ReconstructionRejects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconstruction_rejects_total",
			Help:      "Reconstructions rejected for malformed timing input",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class",
		}, []string{"route", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request handling latency",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"route"}),
		SyncSessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_sessions_active",
			Help:      "Open highlight-sync websocket sessions",
		}),
	}
}

// RecordTierHit records a lookup answered by a tier.
func (m *Metrics) RecordTierHit(tier string) {
	m.TierHits.WithLabelValues(tier).Inc()
}

// RecordTierMiss records a lookup that missed a tier.
func (m *Metrics) RecordTierMiss(tier string) {
	m.TierMisses.WithLabelValues(tier).Inc()
}

// RecordTierError records a swallowed tier failure.
func (m *Metrics) RecordTierError(tier string) {
	m.TierErrors.WithLabelValues(tier).Inc()
}

// RecordFallback records how deep the chain went and whether data was found.
func (m *Metrics) RecordFallback(depth int, found bool) {
	outcome := "miss"
	if found {
		outcome = "hit"
	}
	m.FallbackDepth.WithLabelValues(outcome).Observe(float64(depth))
}

// RecordWriteBack records a write-back attempt into the local cache.
func (m *Metrics) RecordWriteBack(err error) {
	if err != nil {
		m.WriteBackFails.Inc()
		return
	}
	m.WriteBacks.Inc()
}

// RecordSweep records the result of a cache sweep.
func (m *Metrics) RecordSweep(expired, corrupt int) {
	m.CacheEntriesSwept.Add(float64(expired))
	m.CacheEntriesCorrupt.Add(float64(corrupt))
}

// RecordSynthesis records a terminal synthesis state and its latency.
func (m *Metrics) RecordSynthesis(state string, elapsed time.Duration) {
	m.SynthesisRequests.Inc()
	m.SynthesisOutcomes.WithLabelValues(state).Inc()
	m.SynthesisLatency.Observe(elapsed.Seconds())
}

// RecordReconstruction records a reconstruction by timing source
// ("events" or "estimated"), or a rejection.
func (m *Metrics) RecordReconstruction(source string, rejected bool) {
	if rejected {
		m.ReconstructionRejects.Inc()
		return
	}
	m.Reconstructions.WithLabelValues(source).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, status string, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, status).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
