package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaneMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPaneMetrics(reg)
	require.NoError(t, err)

	m.Uploaded()
	m.Uploaded()
	m.Removed(PathSweep)
	m.Removed(PathOwner)
	m.Removed(PathSweep)
	m.IncrementFailed()
	m.SweepFinished(120*time.Millisecond, false)
	m.SweepFinished(time.Second, true)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.uploaded))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.removed.WithLabelValues(PathSweep)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.removed.WithLabelValues(PathOwner)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.incrementFailures))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sweepRuns.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.sweepDuration))
}

func TestPaneMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPaneMetrics(reg)
	require.NoError(t, err)

	_, err = NewPaneMetrics(reg)
	assert.Error(t, err)
}

func TestPaneMetrics_Nil(t *testing.T) {
	var m *PaneMetrics
	assert.NotPanics(t, func() {
		m.Uploaded()
		m.Removed(PathLazy)
		m.IncrementFailed()
		m.SweepFinished(time.Second, false)
	})
}
