// Package analysis runs the parse, compute and emit pipeline for one batch of
// access-log sources.
package analysis

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/proxylog/internal/accesslog"
	"github.com/telhawk-systems/proxylog/internal/logging"
	"github.com/telhawk-systems/proxylog/internal/metrics"
	"github.com/telhawk-systems/proxylog/internal/stats"
)

// Emitter serializes a result onto a sink.
type Emitter interface {
	Emit(w io.Writer, r *stats.Result) error
}

// Analyzer wires a parser to the statistics engine and an emitter.
type Analyzer struct {
	parser  accesslog.Parser
	emitter Emitter
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Config holds the collaborators of an Analyzer. Parser and Emitter are
// required; Logger and Metrics are optional.
type Config struct {
	Parser  accesslog.Parser
	Emitter Emitter
	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// New creates an Analyzer.
func New(cfg Config) (*Analyzer, error) {
	if cfg.Parser == nil {
		return nil, fmt.Errorf("analysis: parser is required")
	}
	if cfg.Emitter == nil {
		return nil, fmt.Errorf("analysis: emitter is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}

	return &Analyzer{
		parser:  cfg.Parser,
		emitter: cfg.Emitter,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     time.Now,
	}, nil
}

// Run parses every source and computes the selected statistics in canonical
// order. It returns a nil result, and no error, when no usable record was
// found.
func (a *Analyzer) Run(sources []accesslog.Source, sel Selection) (*stats.Result, error) {
	return a.run(a.runLogger(), sources, sel)
}

func (a *Analyzer) runLogger() *logging.Logger {
	return a.logger.With(logging.RunID(uuid.NewString()))
}

func (a *Analyzer) run(logger *logging.Logger, sources []accesslog.Source, sel Selection) (*stats.Result, error) {
	defer func() { a.metrics.Finish(a.now()) }()

	start := a.now()
	coll, report, err := a.parser.Parse(sources)
	a.metrics.ObserveParse(report, a.now().Sub(start))
	if err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}

	if coll.Len() == 0 {
		logger.Warn("No log entries to analyze. Exiting")
		return nil, nil
	}

	engine, err := stats.New(coll)
	if err != nil {
		return nil, err
	}
	a.metrics.ChunkedResponses.Set(float64(engine.ChunkedResponses()))

	result := stats.NewResult()
	if sel.Empty() {
		logger.Info("No metrics requested, result is empty")
	}
	for _, m := range sel.Metrics() {
		value, err := engine.Compute(m)
		a.metrics.ObserveMetric(string(m), err)
		if err != nil {
			return nil, fmt.Errorf("compute %s: %w", m.Description(), err)
		}
		result.Set(m, value)
		logger.Info(fmt.Sprintf("Adding %s (--%s) to result", m.Description(), m), logging.Metric(string(m)))
	}

	logger.Debug("Analysis finished",
		logging.Records(coll.Len()),
		logging.Duration(a.now().Sub(start).Milliseconds()))

	return result, nil
}

// Analyze runs the pipeline and emits the result to sink. For empty input
// nothing is written. The result is fully rendered before the first byte
// reaches sink, so a failure never leaves partial output behind.
func (a *Analyzer) Analyze(sources []accesslog.Source, sink io.Writer, sel Selection) error {
	logger := a.runLogger()
	result, err := a.run(logger, sources, sel)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := a.emitter.Emit(&buf, result); err != nil {
		return fmt.Errorf("render result: %w", err)
	}
	if _, err := sink.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	logger.Info("Wrote output", logging.Output(sinkName(sink)))
	return nil
}

func sinkName(w io.Writer) string {
	if n, ok := w.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", w)
}
