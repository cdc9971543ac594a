package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("catalog:reindex").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("catalog:reindex").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("catalog:reindex", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("catalog:reindex", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("catalog:reindex")))

	var nilMetrics *Metrics
	require.ErrorIs(t, nilMetrics.Track("x").End(boom), boom)
}
