package build

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordTask(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordTask(Result{Task: "styles", Written: []string{"a.css"}, Duration: 20 * time.Millisecond}, nil)
	m.RecordTask(Result{Task: "styles", Skipped: 2, Duration: 40 * time.Millisecond}, nil)
	m.RecordTask(Result{Task: "scripts", Duration: 30 * time.Millisecond}, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("styles", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("scripts", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.written.WithLabelValues("styles")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.skipped.WithLabelValues("styles")))

	n, err := testutil.GatherAndCount(reg, "assetflow_task_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s := m.GetSnapshot()
	assert.Equal(t, int64(3), s.TotalRuns)
	assert.Equal(t, int64(2), s.SuccessfulRuns)
	assert.Equal(t, int64(1), s.FailedRuns)
	assert.Equal(t, int64(1), s.FilesWritten)
	assert.Equal(t, int64(2), s.FilesSkipped)
	assert.Equal(t, 90*time.Millisecond, s.TotalDuration)
	assert.Equal(t, 30*time.Millisecond, s.AverageDuration)
	assert.InDelta(t, 66.67, m.GetSuccessRate(), 0.01)
}

func TestMetricsEmpty(t *testing.T) {
	m := NewMetrics(nil)
	assert.Equal(t, 0.0, m.GetSuccessRate())
	assert.Equal(t, Snapshot{}, m.GetSnapshot())
}
