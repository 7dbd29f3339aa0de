// Package metrics provides Prometheus metrics for drop interactions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ning0612/Dropzone/internal/domain"
)

// Interaction results
const (
	ResultEmitted    = "emitted"
	ResultSuperseded = "superseded"
	ResultNoop       = "noop"
	ResultFailed     = "failed"
)

// Recorder holds the drop engine's collectors.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	candidatesTotal     *prometheus.CounterVec
	interactionsTotal   *prometheus.CounterVec
	directoriesExpanded prometheus.Counter
	entriesDropped      prometheus.Counter
	resolveDuration     prometheus.Histogram
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		candidatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropzone_candidates_total",
				Help: "Classified candidates by outcome and rejection reason",
			},
			[]string{"outcome", "reason"},
		),
		interactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropzone_interactions_total",
				Help: "Drop and selection interactions by result",
			},
			[]string{"result"},
		),
		directoriesExpanded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dropzone_directories_expanded_total",
				Help: "Directories listed while resolving drops",
			},
		),
		entriesDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dropzone_entries_dropped_total",
				Help: "Entries skipped because they failed to materialize",
			},
		),
		resolveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dropzone_resolve_duration_seconds",
				Help:    "Time to resolve a drop payload into candidates",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// RecordResult counts the outcome of one classification pass
func (r *Recorder) RecordResult(result domain.SelectResult) {
	if r == nil {
		return
	}
	if n := len(result.AddedFiles); n > 0 {
		r.candidatesTotal.WithLabelValues("added", "").Add(float64(n))
	}
	for _, rejected := range result.RejectedFiles {
		r.candidatesTotal.WithLabelValues("rejected", string(rejected.Reason)).Inc()
	}
}

// RecordInteraction counts a finished interaction
func (r *Recorder) RecordInteraction(result string) {
	if r == nil {
		return
	}
	r.interactionsTotal.WithLabelValues(result).Inc()
}

// RecordDirectory counts a listed directory
func (r *Recorder) RecordDirectory() {
	if r == nil {
		return
	}
	r.directoriesExpanded.Inc()
}

// RecordDroppedEntry counts an entry that failed to materialize
func (r *Recorder) RecordDroppedEntry() {
	if r == nil {
		return
	}
	r.entriesDropped.Inc()
}

// ObserveResolve records the duration of a resolve pass
func (r *Recorder) ObserveResolve(d time.Duration) {
	if r == nil {
		return
	}
	r.resolveDuration.Observe(d.Seconds())
}

// Handler returns an HTTP handler serving the metrics in g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
