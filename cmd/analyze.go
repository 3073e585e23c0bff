package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/proxylog/internal/accesslog"
	"github.com/telhawk-systems/proxylog/internal/analysis"
	"github.com/telhawk-systems/proxylog/internal/logging"
	"github.com/telhawk-systems/proxylog/internal/metrics"
	"github.com/telhawk-systems/proxylog/internal/output"
	"github.com/telhawk-systems/proxylog/internal/stats"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Compute statistics over access log files",
		Long: `Parse one or more access log files and write the requested statistics.

Files may be plain text, gzip or zstd compressed. Use - to read standard
input. Lines with the wrong number of fields are skipped with a warning;
lines whose numeric fields cannot be parsed are dropped.`,
		Example: `  # Most frequent IP and events per second, written to a file
  proxylog analyze access.log --mfip --eps -o result.json

  # Everything, from several files, as a table
  proxylog analyze day1.log day2.log.gz --mfip --lfip --eps --bytes --format table

  # Millisecond timestamps from stdin
  zcat access.log.gz | proxylog analyze - --eps --timestamp-unit ms`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runAnalyze,
	}

	f := analyzeCmd.Flags()
	f.StringP("output", "o", "", "write the result to this file instead of stdout")
	for _, m := range stats.Metrics {
		f.Bool(string(m), false, fmt.Sprintf("include the %s", m.Description()))
	}
	f.String("format", "", "result format: json, yaml, table (default from config)")
	f.String("timestamp-unit", "", "unit of the timestamp field: s, ms, us, ns (default from config)")
	f.String("metrics-file", "", "write run metrics in Prometheus text format to this file")

	return analyzeCmd
}

func (a *app) runAnalyze(cmd *cobra.Command, args []string) error {
	opts := a.cfg.Analyze
	flags := cmd.Flags()
	if flags.Changed("format") {
		opts.Format, _ = flags.GetString("format")
	}
	if flags.Changed("timestamp-unit") {
		opts.TimestampUnit, _ = flags.GetString("timestamp-unit")
	}
	if flags.Changed("metrics-file") {
		opts.MetricsFile, _ = flags.GetString("metrics-file")
	}

	configured, err := analysis.ParseSelection(opts.Metrics)
	if err != nil {
		return err
	}
	var requested analysis.Selection
	for _, m := range stats.Metrics {
		if on, _ := flags.GetBool(string(m)); on {
			requested = requested.With(m)
		}
	}
	sel := configured.Merge(requested)

	unit, err := accesslog.ParseTimestampUnit(opts.TimestampUnit)
	if err != nil {
		return err
	}
	emitter, err := output.ForFormat(opts.Format)
	if err != nil {
		return err
	}

	sources, closeSources, err := accesslog.OpenFiles(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSources(); err != nil {
			a.logger.Warn("Failed to close input", logging.Error(err))
		}
	}()

	runMetrics := metrics.New()
	analyzer, err := analysis.New(analysis.Config{
		Parser:  accesslog.NewFieldParser(accesslog.ParserConfig{TimestampUnit: unit}, a.logger),
		Emitter: emitter,
		Logger:  a.logger,
		Metrics: runMetrics,
	})
	if err != nil {
		return err
	}

	outPath, _ := flags.GetString("output")
	var runErr error
	if outPath != "" {
		sink := &lazyFile{path: outPath}
		runErr = analyzer.Analyze(sources, sink, sel)
		runErr = errors.Join(runErr, sink.Close())
	} else {
		runErr = analyzer.Analyze(sources, cmd.OutOrStdout(), sel)
	}

	if opts.MetricsFile != "" {
		if err := runMetrics.WriteTextfile(opts.MetricsFile); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("write metrics file: %w", err))
		}
	}

	return runErr
}

// lazyFile creates its file on the first write, so a run that produces no
// result leaves an existing file untouched.
type lazyFile struct {
	path string
	f    *os.File
}

func (l *lazyFile) Write(p []byte) (int, error) {
	if l.f == nil {
		f, err := os.Create(l.path)
		if err != nil {
			return 0, err
		}
		l.f = f
	}
	return l.f.Write(p)
}

func (l *lazyFile) Name() string {
	return l.path
}

func (l *lazyFile) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}
