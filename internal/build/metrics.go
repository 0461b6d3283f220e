package build

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks task runs, both as Prometheus collectors and as an
// in-process snapshot.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	written  *prometheus.CounterVec
	skipped  *prometheus.CounterVec

	mutex    sync.RWMutex
	snapshot Snapshot
}

// Snapshot is a point-in-time copy of the run counters.
type Snapshot struct {
	TotalRuns       int64
	SuccessfulRuns  int64
	FailedRuns      int64
	FilesWritten    int64
	FilesSkipped    int64
	AverageDuration time.Duration
	TotalDuration   time.Duration
}

// NewMetrics creates the collectors and registers them with reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetflow",
			Name:      "task_runs_total",
			Help:      "Task runs by task and outcome.",
		}, []string{"task", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "assetflow",
			Name:      "task_duration_seconds",
			Help:      "Task run duration.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"task"}),
		written: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetflow",
			Name:      "files_written_total",
			Help:      "Files written by task.",
		}, []string{"task"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetflow",
			Name:      "files_skipped_total",
			Help:      "Up-to-date files skipped by task.",
		}, []string{"task"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.duration, m.written, m.skipped)
	}
	return m
}

// RecordTask records one task run.
func (m *Metrics) RecordTask(result Result, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.runs.WithLabelValues(result.Task, status).Inc()
	m.duration.WithLabelValues(result.Task).Observe(result.Duration.Seconds())
	m.written.WithLabelValues(result.Task).Add(float64(len(result.Written)))
	m.skipped.WithLabelValues(result.Task).Add(float64(result.Skipped))

	m.mutex.Lock()
	defer m.mutex.Unlock()

	s := &m.snapshot
	s.TotalRuns++
	s.TotalDuration += result.Duration
	s.FilesWritten += int64(len(result.Written))
	s.FilesSkipped += int64(result.Skipped)
	if err != nil {
		s.FailedRuns++
	} else {
		s.SuccessfulRuns++
	}
	s.AverageDuration = s.TotalDuration / time.Duration(s.TotalRuns)
}

// GetSnapshot returns a copy of the current counters.
func (m *Metrics) GetSnapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.snapshot
}

// GetSuccessRate returns the share of successful runs as a percentage.
func (m *Metrics) GetSuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.snapshot.TotalRuns == 0 {
		return 0.0
	}
	return float64(m.snapshot.SuccessfulRuns) / float64(m.snapshot.TotalRuns) * 100.0
}
