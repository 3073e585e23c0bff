// Package stats computes aggregate metrics over a parsed access-log collection.
package stats

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/telhawk-systems/proxylog/internal/accesslog"
)

var (
	// ErrEmptyInput is returned when an engine is built from zero records.
	ErrEmptyInput = errors.New("statistics require at least one log record")

	// ErrDegenerateTimeSpan is returned by EventsPerSecond when the records
	// span less than one whole second.
	ErrDegenerateTimeSpan = errors.New("log records span less than one second")
)

// IPCount is the number of records seen for one client IP.
type IPCount struct {
	IP    string
	Count int
	first int
}

// Engine answers metric queries over one collection. It never modifies the
// collection.
type Engine struct {
	coll    *accesslog.Collection
	ranking func() []IPCount
}

// New creates an engine. It fails with ErrEmptyInput when coll has no records.
func New(coll *accesslog.Collection) (*Engine, error) {
	if coll.Len() == 0 {
		return nil, ErrEmptyInput
	}

	e := &Engine{coll: coll}
	e.ranking = sync.OnceValue(e.rankIPs)
	return e, nil
}

// Len returns the number of records the engine was built from.
func (e *Engine) Len() int {
	return e.coll.Len()
}

// rankIPs orders client IPs by count, highest first. Equal counts keep the
// order in which the IPs first appeared.
func (e *Engine) rankIPs() []IPCount {
	index := make(map[string]int)
	var counts []IPCount
	for i, rec := range e.coll.All() {
		if j, ok := index[rec.ClientIP]; ok {
			counts[j].Count++
			continue
		}
		index[rec.ClientIP] = len(counts)
		counts = append(counts, IPCount{IP: rec.ClientIP, Count: 1, first: i})
	}

	slices.SortStableFunc(counts, func(a, b IPCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return a.first - b.first
	})
	return counts
}

// IPFrequencies returns every client IP with its count, most frequent first.
func (e *Engine) IPFrequencies() []IPCount {
	return slices.Clone(e.ranking())
}

// MostFrequentIP returns the client IP with the highest count. On a tie the
// IP that appeared first wins.
func (e *Engine) MostFrequentIP() string {
	r := e.ranking()
	return r[0].IP
}

// LeastFrequentIP returns the client IP with the lowest count. On a tie the
// IP that appeared last wins, the opposite end of the MostFrequentIP order.
func (e *Engine) LeastFrequentIP() string {
	r := e.ranking()
	return r[len(r)-1].IP
}

// TimeSpan returns the earliest and latest record timestamps.
func (e *Engine) TimeSpan() (first, last time.Time) {
	for i, rec := range e.coll.All() {
		if i == 0 || rec.Timestamp.Before(first) {
			first = rec.Timestamp
		}
		if i == 0 || rec.Timestamp.After(last) {
			last = rec.Timestamp
		}
	}
	return first, last
}

// ElapsedSeconds is the span between the first and last record, truncated to
// whole seconds. It is computed from Unix seconds because time.Duration
// saturates at about 292 years.
func (e *Engine) ElapsedSeconds() int64 {
	first, last := e.TimeSpan()
	secs := last.Unix() - first.Unix()
	if last.Nanosecond() < first.Nanosecond() {
		secs--
	}
	return secs
}

// EventsPerSecond returns records per elapsed second. A span shorter than
// one second yields ErrDegenerateTimeSpan instead of dividing by zero.
func (e *Engine) EventsPerSecond() (float64, error) {
	secs := e.ElapsedSeconds()
	if secs == 0 {
		return 0, ErrDegenerateTimeSpan
	}
	return float64(e.coll.Len()) / float64(secs), nil
}

// TotalBytesExchanged sums the positive header sizes and the positive
// response sizes. Non-positive values (-1 marks a chunked response) are left
// out of the sum rather than counted as zero.
func (e *Engine) TotalBytesExchanged() int64 {
	var headers, bodies int64
	for _, rec := range e.coll.All() {
		if rec.ResponseHeaderSize > 0 {
			headers += rec.ResponseHeaderSize
		}
		if rec.ResponseSize > 0 {
			bodies += rec.ResponseSize
		}
	}
	return headers + bodies
}

// ChunkedResponses counts the records excluded from the response size sum.
func (e *Engine) ChunkedResponses() int {
	n := 0
	for _, rec := range e.coll.All() {
		if rec.Chunked() {
			n++
		}
	}
	return n
}

// Compute evaluates a single metric by key.
func (e *Engine) Compute(m Metric) (any, error) {
	switch m {
	case MostFrequentIP:
		return e.MostFrequentIP(), nil
	case LeastFrequentIP:
		return e.LeastFrequentIP(), nil
	case EventsPerSecond:
		return e.EventsPerSecond()
	case BytesExchanged:
		return e.TotalBytesExchanged(), nil
	}
	return nil, fmt.Errorf("unknown metric %q", m)
}
