package analysis_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/proxylog/internal/accesslog"
	"github.com/telhawk-systems/proxylog/internal/analysis"
	"github.com/telhawk-systems/proxylog/internal/logging"
	"github.com/telhawk-systems/proxylog/internal/metrics"
	"github.com/telhawk-systems/proxylog/internal/output"
	"github.com/telhawk-systems/proxylog/internal/stats"
)

const (
	file1Content = `
    1157689312.049   5006 10.105.21.199 TCP_MISS/200 19763 CONNECT login.yahoo.com:443 badeyek DIRECT/209.73.177.115 -
    1157689320.327   2864 10.105.21.199 TCP_MISS/200 10182 GET http://www.goonernews.com/ badeyek DIRECT/207.58.145.61 text/html
    `
	file2Content = `
    1157689320.343   1357 10.105.21.198 TCP_REFRESH_HIT/304 214 GET http://www.goonernews.com/styles.css badeyek DIRECT/207.58.145.61 -
    `
)

func sources(contents ...string) []accesslog.Source {
	out := make([]accesslog.Source, len(contents))
	for i, c := range contents {
		out[i] = accesslog.Source{Name: "test", Reader: strings.NewReader(c)}
	}
	return out
}

func newAnalyzer(t *testing.T, m *metrics.Metrics) *analysis.Analyzer {
	t.Helper()
	a, err := analysis.New(analysis.Config{
		Parser:  accesslog.NewFieldParser(accesslog.ParserConfig{}, logging.Discard()),
		Emitter: output.JSONEmitter{},
		Logger:  logging.Discard(),
		Metrics: m,
	})
	require.NoError(t, err)
	return a
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := analysis.New(analysis.Config{Emitter: output.JSONEmitter{}})
	assert.Error(t, err)

	_, err = analysis.New(analysis.Config{Parser: accesslog.NewFieldParser(accesslog.ParserConfig{}, nil)})
	assert.Error(t, err)
}

func TestAnalyze_AllMetrics(t *testing.T) {
	var out bytes.Buffer
	err := newAnalyzer(t, nil).Analyze(sources(file1Content, file2Content), &out, analysis.All())
	require.NoError(t, err)

	// 3 records spanning 8 whole seconds
	assert.Equal(t, `{"mfip": "10.105.21.199", "lfip": "10.105.21.198", "eps": 0.375, "bytes": 39386}`, out.String())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Len(t, decoded, 4)
}

func TestAnalyze_SingleMetric(t *testing.T) {
	tests := []struct {
		name string
		sel  analysis.Selection
		key  string
	}{
		{"mfip", analysis.Selection{MostFrequentIP: true}, "mfip"},
		{"lfip", analysis.Selection{LeastFrequentIP: true}, "lfip"},
		{"eps", analysis.Selection{EventsPerSecond: true}, "eps"},
		{"bytes", analysis.Selection{BytesExchanged: true}, "bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, newAnalyzer(t, nil).Analyze(sources(file1Content, file2Content), &out, tt.sel))

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
			assert.Len(t, decoded, 1)
			assert.Contains(t, decoded, tt.key)
		})
	}
}

func TestAnalyze_NoMetricsRequested(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, newAnalyzer(t, nil).Analyze(sources(file1Content, file2Content), &out, analysis.Selection{}))
	assert.Equal(t, "{}", out.String())
}

func TestAnalyze_EmptyInputWritesNothing(t *testing.T) {
	var out bytes.Buffer
	err := newAnalyzer(t, nil).Analyze(sources(""), &out, analysis.All())
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestAnalyze_OnlyMalformedInputWritesNothing(t *testing.T) {
	var out bytes.Buffer
	content := "too few fields\n1157689312 ABC 10.0.0.1 C 200 GET u n d t\n"
	require.NoError(t, newAnalyzer(t, nil).Analyze(sources(content), &out, analysis.All()))
	assert.Empty(t, out.String())
}

func TestAnalyze_DegenerateSpanWritesNothing(t *testing.T) {
	var out bytes.Buffer
	err := newAnalyzer(t, nil).Analyze(sources(file2Content), &out, analysis.All())

	assert.ErrorIs(t, err, stats.ErrDegenerateTimeSpan)
	assert.Empty(t, out.String())
}

func TestAnalyze_SourceErrorPropagates(t *testing.T) {
	var out bytes.Buffer
	srcs := []accesslog.Source{{Name: "broken", Reader: errReader{}}}

	err := newAnalyzer(t, nil).Analyze(srcs, &out, analysis.All())
	var srcErr *accesslog.SourceError
	assert.ErrorAs(t, err, &srcErr)
	assert.Empty(t, out.String())
}

func TestAnalyze_WriteError(t *testing.T) {
	err := newAnalyzer(t, nil).Analyze(sources(file1Content), errWriter{}, analysis.Selection{MostFrequentIP: true})
	assert.ErrorContains(t, err, "write result")
}

func TestRun_CanonicalOrder(t *testing.T) {
	sel, err := analysis.ParseSelection([]string{"bytes", "eps,mfip"})
	require.NoError(t, err)

	result, err := newAnalyzer(t, nil).Run(sources(file1Content, file2Content), sel)
	require.NoError(t, err)
	require.NotNil(t, result)

	var keys []stats.Metric
	for _, e := range result.Entries() {
		keys = append(keys, e.Metric)
	}
	assert.Equal(t, []stats.Metric{stats.MostFrequentIP, stats.EventsPerSecond, stats.BytesExchanged}, keys)
}

func TestRun_EmptyInputReturnsNilResult(t *testing.T) {
	result, err := newAnalyzer(t, nil).Run(sources("\n\n"), analysis.All())
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestRun_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	content := file1Content + "bad line\n1157689399 -1 10.0.0.9 C -1 GET u n d t\n1157689399 X 10.0.0.9 C 1 GET u n d t\n"

	_, err := newAnalyzer(t, m).Run(sources(content), analysis.Selection{BytesExchanged: true})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourcesTotal))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.LinesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BadLinesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedRecordsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Records))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChunkedResponses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MetricsComputedTotal.WithLabelValues("bytes")))
}

func TestRun_LogsPerMetric(t *testing.T) {
	var logs bytes.Buffer
	a, err := analysis.New(analysis.Config{
		Parser:  accesslog.NewFieldParser(accesslog.ParserConfig{}, logging.Discard()),
		Emitter: output.JSONEmitter{},
		Logger:  logging.New(&logs, 0, "text"),
	})
	require.NoError(t, err)

	_, err = a.Run(sources(file1Content), analysis.Selection{MostFrequentIP: true})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "Adding most frequent IP (--mfip) to result")
	assert.Contains(t, logs.String(), "run_id=")
}

func TestRun_LogsEmptySelection(t *testing.T) {
	var logs bytes.Buffer
	a, err := analysis.New(analysis.Config{
		Parser:  accesslog.NewFieldParser(accesslog.ParserConfig{}, logging.Discard()),
		Emitter: output.JSONEmitter{},
		Logger:  logging.New(&logs, 0, "text"),
	})
	require.NoError(t, err)

	result, err := a.Run(sources(file1Content), analysis.Selection{})
	require.NoError(t, err)
	assert.Zero(t, result.Len())
	assert.Contains(t, logs.String(), "No metrics requested, result is empty")

	logs.Reset()
	_, err = a.Run(sources(file1Content), analysis.Selection{BytesExchanged: true})
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "No metrics requested")
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("boom") }
