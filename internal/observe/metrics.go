// Package observe provides application-wide observability primitives for
// Notewisp: OpenTelemetry metrics, tracing, structured logging helpers, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Notewisp metrics.
const meterName = "github.com/notewisp/notewisp"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscribeDuration tracks speech-to-text latency per memo.
	TranscribeDuration metric.Float64Histogram

	// StructureDuration tracks language-model structuring latency.
	StructureDuration metric.Float64Histogram

	// --- Counters ---

	// NotesProcessed counts finished notes. Use with attributes:
	//   attribute.String("mode", "structured"|"simple"), attribute.String("status", ...)
	NotesProcessed metric.Int64Counter

	// HallucinationsDetected counts transcripts that tripped hallucination
	// detection.
	HallucinationsDetected metric.Int64Counter

	// TruncationsApplied counts repetition truncations inserted into
	// transcripts.
	TruncationsApplied metric.Int64Counter

	// VocabCorrections counts phonetic vocabulary replacements.
	VocabCorrections metric.Int64Counter

	// --- Gauges ---

	// WatchSubscribers tracks the number of connected websocket watchers.
	WatchSubscribers metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// remote model calls, which dominate note processing time.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscribeDuration, err = m.Float64Histogram("notewisp.transcribe.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StructureDuration, err = m.Float64Histogram("notewisp.structure.duration",
		metric.WithDescription("Latency of language-model note structuring."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.NotesProcessed, err = m.Int64Counter("notewisp.notes.processed",
		metric.WithDescription("Total notes processed by mode and status."),
	); err != nil {
		return nil, err
	}
	if met.HallucinationsDetected, err = m.Int64Counter("notewisp.hallucinations.detected",
		metric.WithDescription("Total transcripts flagged by hallucination detection."),
	); err != nil {
		return nil, err
	}
	if met.TruncationsApplied, err = m.Int64Counter("notewisp.truncations.applied",
		metric.WithDescription("Total repetition truncations inserted into transcripts."),
	); err != nil {
		return nil, err
	}
	if met.VocabCorrections, err = m.Int64Counter("notewisp.vocab.corrections",
		metric.WithDescription("Total phonetic vocabulary replacements applied."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.WatchSubscribers, err = m.Int64UpDownCounter("notewisp.watch.subscribers",
		metric.WithDescription("Number of connected websocket watchers."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("notewisp.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordTranscribe records one transcription call with its latency.
func (m *Metrics) RecordTranscribe(ctx context.Context, d time.Duration, status string) {
	m.TranscribeDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordStructure records one structuring call with its latency.
func (m *Metrics) RecordStructure(ctx context.Context, d time.Duration, status string) {
	m.StructureDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordNoteProcessed counts one finished note.
func (m *Metrics) RecordNoteProcessed(ctx context.Context, mode, status string) {
	m.NotesProcessed.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("status", status),
		),
	)
}
