package accesslog

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/telhawk-systems/proxylog/internal/logging"
)

// DefaultMaxLineSize is the longest line kept. Longer lines are skipped as
// bad lines.
const DefaultMaxLineSize = 1 << 20

// Source is one named input stream.
type Source struct {
	Name   string
	Reader io.Reader
}

// Parser turns sources into a cleaned collection.
type Parser interface {
	Parse(sources []Source) (*Collection, Report, error)
}

// Report counts what happened to the input while parsing.
type Report struct {
	Sources  int `json:"sources"`
	Lines    int `json:"lines"`
	BadLines int `json:"bad_lines"`
	Dropped  int `json:"dropped"`
	Records  int `json:"records"`
}

// ParserConfig configures a FieldParser.
type ParserConfig struct {
	TimestampUnit TimestampUnit
	MaxLineSize   int
}

// FieldParser reads the whitespace separated 10-column proxy format.
type FieldParser struct {
	unit        TimestampUnit
	maxLineSize int
	logger      *logging.Logger
}

// NewFieldParser creates a parser. A nil logger falls back to the default one.
func NewFieldParser(cfg ParserConfig, logger *logging.Logger) *FieldParser {
	if cfg.TimestampUnit == "" {
		cfg.TimestampUnit = UnitSeconds
	}
	if cfg.MaxLineSize <= 0 {
		cfg.MaxLineSize = DefaultMaxLineSize
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &FieldParser{
		unit:        cfg.TimestampUnit,
		maxLineSize: cfg.MaxLineSize,
		logger:      logger,
	}
}

// rawRecord is a structurally valid line whose numeric columns are not yet coerced.
type rawRecord struct {
	fields [FieldCount]string
}

// Parse reads every source to completion. Structurally bad lines are skipped
// while reading; rows with unusable numeric values are dropped afterwards.
// Only an unreadable source returns an error.
func (p *FieldParser) Parse(sources []Source) (*Collection, Report, error) {
	var report Report
	var rows []rawRecord

	for _, src := range sources {
		n, bad, err := p.readSource(src, &rows)
		report.Lines += n
		report.BadLines += bad
		if err != nil {
			return nil, report, err
		}
		report.Sources++
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, ok := p.clean(row)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	report.Dropped = len(rows) - len(records)
	report.Records = len(records)
	if report.Dropped > 0 {
		p.logger.Warn("Ignored log entries with unexpected values", logging.Dropped(report.Dropped))
	}
	p.logger.Info("Parsed log lines", logging.Records(report.Records))

	return &Collection{records: records}, report, nil
}

func (p *FieldParser) readSource(src Source, rows *[]rawRecord) (lines, bad int, err error) {
	br := bufio.NewReaderSize(src.Reader, min(64*1024, p.maxLineSize))

	var buf []byte
	lineNo := 0
	for {
		line, tooLong, readErr := readLine(br, buf, p.maxLineSize)
		buf = line[:0]

		atEOF := errors.Is(readErr, io.EOF)
		if readErr != nil && !atEOF {
			return lines, bad, &SourceError{Source: src.Name, Err: readErr}
		}
		if atEOF && len(line) == 0 && !tooLong {
			return lines, bad, nil
		}

		lineNo++
		switch {
		case tooLong:
			lines++
			bad++
			p.logger.Warn("Skipping oversized line",
				logging.Input(src.Name), logging.Line(lineNo), "max_line_size", p.maxLineSize)
		default:
			n, b := p.splitLine(src.Name, lineNo, line, rows)
			lines += n
			bad += b
		}

		if atEOF {
			return lines, bad, nil
		}
	}
}

// splitLine appends a structurally valid line to rows. Blank lines are not
// counted.
func (p *FieldParser) splitLine(name string, lineNo int, line []byte, rows *[]rawRecord) (lines, bad int) {
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return 0, 0
	}

	if len(fields) != FieldCount {
		p.logger.Warn("Skipping bad line",
			append([]any{logging.Input(name), logging.Line(lineNo)},
				logging.FieldCount(FieldCount, len(fields))...)...)
		return 1, 1
	}

	var row rawRecord
	copy(row.fields[:], fields)
	*rows = append(*rows, row)
	return 1, 0
}

// readLine returns the next line, reusing buf. A line longer than limit bytes
// is consumed up to its terminator and reported through tooLong with an
// empty result, so memory stays bounded by limit.
func readLine(br *bufio.Reader, buf []byte, limit int) (line []byte, tooLong bool, err error) {
	buf = buf[:0]
	for {
		chunk, readErr := br.ReadSlice('\n')
		if !tooLong {
			buf = append(buf, chunk...)
			if len(bytes.TrimSuffix(buf, []byte{'\n'})) > limit {
				tooLong = true
				buf = buf[:0]
			}
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimSuffix(buf, []byte{'\n'}), tooLong, readErr
	}
}

// clean coerces the numeric columns. Every column is checked so that the
// debug log can name each offending field.
func (p *FieldParser) clean(row rawRecord) (Record, bool) {
	f := row.fields
	var invalid []string

	ts, valid := time.Time{}, false
	if v, ok := parseNumber(f[colTimestamp]); ok {
		ts, valid = p.unit.Time(v)
	}
	if !valid {
		invalid = append(invalid, Columns[colTimestamp])
	}

	headerSize, valid := parseSize(f[colResponseHeaderSize])
	if !valid {
		invalid = append(invalid, Columns[colResponseHeaderSize])
	}

	responseSize, valid := parseSize(f[colResponseSize])
	if !valid {
		invalid = append(invalid, Columns[colResponseSize])
	}

	if len(invalid) > 0 {
		p.logger.Debug("Dropping log entry with unexpected values",
			"invalid", invalid,
			Columns[colTimestamp], f[colTimestamp],
			Columns[colResponseHeaderSize], f[colResponseHeaderSize],
			Columns[colResponseSize], f[colResponseSize])
		return Record{}, false
	}

	return Record{
		Timestamp:           ts,
		ResponseHeaderSize:  headerSize,
		ClientIP:            f[colClientIP],
		ResponseCode:        f[colResponseCode],
		ResponseSize:        responseSize,
		RequestMethod:       f[colRequestMethod],
		URL:                 f[colURL],
		Username:            f[colUsername],
		AccessDestinationIP: f[colAccessDestinationIP],
		ResponseType:        f[colResponseType],
	}, true
}

// parseNumber accepts plain decimal numbers only: no hex, no digit
// separators, no NaN or infinities.
func parseNumber(s string) (float64, bool) {
	if strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseSize parses a byte count. Decimal values are truncated toward zero.
func parseSize(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	v, ok := parseNumber(s)
	if !ok || math.Abs(v) >= math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}
