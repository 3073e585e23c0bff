// Package output renders analysis results and console status messages.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/proxylog/internal/stats"
)

// Emitter serializes a result onto a writer.
type Emitter interface {
	Emit(w io.Writer, r *stats.Result) error
}

// JSONEmitter writes one JSON object on a single line with no trailing
// newline.
type JSONEmitter struct{}

func (JSONEmitter) Emit(w io.Writer, r *stats.Result) error {
	data, err := r.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// YAMLEmitter writes a YAML mapping in metric order.
type YAMLEmitter struct{}

func (YAMLEmitter) Emit(w io.Writer, r *stats.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// TableEmitter writes an aligned two column table.
type TableEmitter struct{}

func (TableEmitter) Emit(w io.Writer, r *stats.Result) error {
	t := NewTable([]string{"METRIC", "DESCRIPTION", "VALUE"})
	for _, e := range r.Entries() {
		t.AddRow([]string{string(e.Metric), e.Metric.Description(), stats.FormatValue(e.Value)})
	}
	return t.Render(w)
}

type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		rows:    [][]string{},
	}
}

func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

func (t *Table) Render(w io.Writer) error {
	// Calculate column widths
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder

	// Header, padded before coloring so escape codes don't skew alignment
	headerColor := color.New(color.FgWhite, color.Bold)
	for i, header := range t.headers {
		b.WriteString(headerColor.Sprint(pad(header, widths[i], i == len(t.headers)-1)))
	}
	b.WriteByte('\n')

	for i := range t.headers {
		b.WriteString(pad(strings.Repeat("-", widths[i]), widths[i], i == len(t.headers)-1))
	}
	b.WriteByte('\n')

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			b.WriteString(pad(cell, widths[i], i == len(widths)-1))
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func pad(s string, width int, last bool) string {
	if last {
		return s
	}
	return fmt.Sprintf("%-*s  ", width, s)
}
