package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records outcomes for the recording pipeline.
type PipelineMetrics struct {
	duration *prometheus.HistogramVec
	files    *prometheus.CounterVec
	analyses *prometheus.CounterVec
	retries  *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_file_duration_seconds",
		Help:    "End-to-end processing duration per recording.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"status"})
	files := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_files_total",
		Help: "Recordings processed, labelled by terminal status.",
	}, []string{"status"})
	analyses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_analyses_total",
		Help: "Analysis module executions, labelled by module and status.",
	}, []string{"module", "status"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_transcription_retries_total",
		Help: "Transcription attempts retried after a retryable failure.",
	}, []string{"reason"})
	reg.MustRegister(duration, files, analyses, retries)
	return &PipelineMetrics{
		duration: duration,
		files:    files,
		analyses: analyses,
		retries:  retries,
	}
}

// ObserveFileDuration records the processing duration for a recording.
func (p *PipelineMetrics) ObserveFileDuration(status string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(status)).Observe(duration.Seconds())
}

// IncFile counts a recording that reached the given terminal status.
func (p *PipelineMetrics) IncFile(status string) {
	if p == nil || p.files == nil {
		return
	}
	p.files.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncAnalysis counts a single analysis module execution.
func (p *PipelineMetrics) IncAnalysis(module, status string) {
	if p == nil || p.analyses == nil {
		return
	}
	p.analyses.WithLabelValues(normalizeLabel(module), normalizeLabel(status)).Inc()
}

// IncRetry counts a retried transcription attempt.
func (p *PipelineMetrics) IncRetry(reason string) {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.WithLabelValues(normalizeLabel(reason)).Inc()
}
