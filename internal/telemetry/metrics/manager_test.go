package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	promcl "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()
	require.NotNil(t, m)

	m.CounterTimerTransitions.WithLabelValues("active").Inc()
	m.CounterTimerTransitions.WithLabelValues("active").Inc()
	m.CounterPersistenceFailures.WithLabelValues("start_edge").Inc()
	m.CounterAchievementsUnlocked.Add(3)
	m.GaugeActiveTimers.Set(1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterTimerTransitions.WithLabelValues("active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterPersistenceFailures.WithLabelValues("start_edge")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CounterAchievementsUnlocked))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GaugeActiveTimers))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestSetupPrometheus(t *testing.T) {
	reg := SetupPrometheus()
	require.NotNil(t, reg)

	m := NewManager("edgetrack", "main", reg)
	m.GaugeLifeSignal.Set(1)

	count, err := testutil.GatherAndCount(reg, "edgetrack_main_life_signal")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestManager_SessionDurationHistogram(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.HistSessionDuration.Observe(600)
	m.HistSessionDuration.Observe(1500)

	gathered, err := reg.Gather()
	require.NoError(t, err)

	var found *promcl.MetricFamily
	for _, mf := range gathered {
		if mf.GetName() == "edgetrack_test_server_session_duration_seconds" {
			found = mf
			break
		}
	}
	require.NotNil(t, found, "session duration histogram not gathered")
	require.Len(t, found.Metric, 1)

	hist := found.Metric[0].GetHistogram()
	require.NotNil(t, hist)
	assert.Equal(t, uint64(2), hist.GetSampleCount())
	assert.Equal(t, 2100.0, hist.GetSampleSum())

	// 600 falls in the le=600 bucket, 1500 only from le=1800 on
	for _, b := range hist.GetBucket() {
		switch b.GetUpperBound() {
		case 300:
			assert.Equal(t, uint64(0), b.GetCumulativeCount())
		case 600, 1200:
			assert.Equal(t, uint64(1), b.GetCumulativeCount())
		case 1800:
			assert.Equal(t, uint64(2), b.GetCumulativeCount())
		}
	}
}
