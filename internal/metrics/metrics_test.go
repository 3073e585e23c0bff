package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/proxylog/internal/accesslog"
)

func TestObserveParse(t *testing.T) {
	m := New()
	m.ObserveParse(accesslog.Report{Sources: 2, Lines: 10, BadLines: 3, Dropped: 2, Records: 5}, 250*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SourcesTotal))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.LinesTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.BadLinesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DroppedRecordsTotal))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Records))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ParseDuration))
}

func TestObserveMetric(t *testing.T) {
	m := New()
	m.ObserveMetric("mfip", nil)
	m.ObserveMetric("mfip", nil)
	m.ObserveMetric("eps", errors.New("span too short"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MetricsComputedTotal.WithLabelValues("mfip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MetricErrorsTotal.WithLabelValues("eps")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MetricsComputedTotal.WithLabelValues("eps")))
}

func TestNew_IsolatedRegistries(t *testing.T) {
	a := New()
	b := New()
	a.LinesTotal.Add(7)

	assert.Equal(t, 7.0, testutil.ToFloat64(a.LinesTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.LinesTotal))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveParse(accesslog.Report{Sources: 1, Lines: 4, Records: 4}, time.Millisecond)
	m.Finish(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "proxylog.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "proxylog_lines_total 4")
	assert.Contains(t, string(data), "proxylog_records 4")
	assert.Contains(t, string(data), "proxylog_last_run_timestamp_seconds 1.7e+09")
}
