package analysis

import (
	"strings"

	"github.com/telhawk-systems/proxylog/internal/stats"
)

// Selection says which statistics a run computes.
type Selection struct {
	MostFrequentIP  bool
	LeastFrequentIP bool
	EventsPerSecond bool
	BytesExchanged  bool
}

// All selects every statistic.
func All() Selection {
	return Selection{true, true, true, true}
}

// ParseSelection builds a selection from metric keys such as "mfip" or "eps".
// Keys may also be comma separated.
func ParseSelection(keys []string) (Selection, error) {
	var sel Selection
	for _, raw := range keys {
		for _, key := range strings.Split(raw, ",") {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			m, err := stats.ParseMetric(key)
			if err != nil {
				return Selection{}, err
			}
			sel = sel.With(m)
		}
	}
	return sel, nil
}

// With returns a copy of s with m selected.
func (s Selection) With(m stats.Metric) Selection {
	switch m {
	case stats.MostFrequentIP:
		s.MostFrequentIP = true
	case stats.LeastFrequentIP:
		s.LeastFrequentIP = true
	case stats.EventsPerSecond:
		s.EventsPerSecond = true
	case stats.BytesExchanged:
		s.BytesExchanged = true
	}
	return s
}

// Merge selects everything selected in either s or o.
func (s Selection) Merge(o Selection) Selection {
	return Selection{
		MostFrequentIP:  s.MostFrequentIP || o.MostFrequentIP,
		LeastFrequentIP: s.LeastFrequentIP || o.LeastFrequentIP,
		EventsPerSecond: s.EventsPerSecond || o.EventsPerSecond,
		BytesExchanged:  s.BytesExchanged || o.BytesExchanged,
	}
}

// Metrics returns the selected metrics in canonical order.
func (s Selection) Metrics() []stats.Metric {
	var out []stats.Metric
	for _, m := range stats.Metrics {
		if s.has(m) {
			out = append(out, m)
		}
	}
	return out
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return s == Selection{}
}

func (s Selection) has(m stats.Metric) bool {
	switch m {
	case stats.MostFrequentIP:
		return s.MostFrequentIP
	case stats.LeastFrequentIP:
		return s.LeastFrequentIP
	case stats.EventsPerSecond:
		return s.EventsPerSecond
	case stats.BytesExchanged:
		return s.BytesExchanged
	}
	return false
}
