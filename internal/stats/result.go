package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Metric is the key a computed statistic is emitted under.
type Metric string

const (
	MostFrequentIP  Metric = "mfip"
	LeastFrequentIP Metric = "lfip"
	EventsPerSecond Metric = "eps"
	BytesExchanged  Metric = "bytes"
)

// Metrics lists every metric in canonical emission order.
var Metrics = []Metric{MostFrequentIP, LeastFrequentIP, EventsPerSecond, BytesExchanged}

// Description is a human readable label for m.
func (m Metric) Description() string {
	switch m {
	case MostFrequentIP:
		return "most frequent IP"
	case LeastFrequentIP:
		return "least frequent IP"
	case EventsPerSecond:
		return "events per second"
	case BytesExchanged:
		return "total amount of bytes exchanged"
	}
	return string(m)
}

// ParseMetric validates a metric key.
func ParseMetric(s string) (Metric, error) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q (want mfip, lfip, eps or bytes)", s)
}

// Entry is one computed metric.
type Entry struct {
	Metric Metric
	Value  any
}

// Result maps metric keys to computed values, keeping insertion order.
type Result struct {
	entries []Entry
}

// NewResult returns an empty result.
func NewResult() *Result {
	return &Result{}
}

// Set stores value under m, replacing an earlier value for the same key in place.
func (r *Result) Set(m Metric, value any) {
	for i := range r.entries {
		if r.entries[i].Metric == m {
			r.entries[i].Value = value
			return
		}
	}
	r.entries = append(r.entries, Entry{Metric: m, Value: value})
}

// Get returns the value stored under m.
func (r *Result) Get(m Metric) (any, bool) {
	for _, e := range r.entries {
		if e.Metric == m {
			return e.Value, true
		}
	}
	return nil, false
}

// Len returns the number of entries.
func (r *Result) Len() int {
	return len(r.entries)
}

// Entries returns the entries in insertion order.
func (r *Result) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// MarshalJSON renders the object in insertion order with ": " and ", "
// separators. Floats always carry a fractional part so consumers see a float,
// not an integer. HTML characters are not escaped.
//
// encoding/json compacts and re-escapes Marshaler output, so callers that
// need these exact bytes call MarshalJSON directly.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.entries {
		if i > 0 {
			buf.WriteString(", ")
		}
		key, err := marshalValue(string(e.Metric))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(": ")

		val, err := marshalValue(e.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", e.Metric, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	b := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})

	switch v.(type) {
	case float64:
		if !bytes.ContainsAny(b, ".eE") {
			b = append(b, '.', '0')
		}
	case string:
		b = escapeNonASCII(b)
	}
	return b, nil
}

// escapeNonASCII rewrites every non-ASCII rune of an encoded JSON string as
// \uXXXX, using surrogate pairs above the BMP.
func escapeNonASCII(b []byte) []byte {
	if !slices.ContainsFunc(b, func(c byte) bool { return c >= utf8.RuneSelf }) {
		return b
	}
	out := make([]byte, 0, len(b)+16)
	for _, r := range string(b) {
		switch {
		case r < utf8.RuneSelf:
			out = append(out, byte(r))
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			out = fmt.Appendf(out, "\\u%04x\\u%04x", hi, lo)
		default:
			out = fmt.Appendf(out, "\\u%04x", r)
		}
	}
	return out
}

// MarshalYAML renders an ordered mapping.
func (r *Result) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range r.entries {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(e.Metric)}

		val := &yaml.Node{Kind: yaml.ScalarNode}
		switch v := e.Value.(type) {
		case string:
			val.Tag, val.Value = "!!str", v
		case float64:
			b, err := marshalValue(v)
			if err != nil {
				return nil, fmt.Errorf("marshal %s: %w", e.Metric, err)
			}
			val.Tag, val.Value = "!!float", string(b)
		case int64:
			val.Tag, val.Value = "!!int", strconv.FormatInt(v, 10)
		case int:
			val.Tag, val.Value = "!!int", strconv.Itoa(v)
		default:
			if err := val.Encode(v); err != nil {
				return nil, fmt.Errorf("marshal %s: %w", e.Metric, err)
			}
		}

		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

// FormatValue renders a single value for tables and log lines.
func FormatValue(v any) string {
	switch x := v.(type) {
	case float64:
		b, err := marshalValue(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	case string:
		return x
	}
	return fmt.Sprint(v)
}
