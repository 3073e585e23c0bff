// Package accesslog turns proxy access-log text into validated records.
package accesslog

import (
	"iter"
	"slices"
	"time"
)

// Columns names the fields of the fixed access-log schema, in on-disk order.
var Columns = [FieldCount]string{
	"timestamp",
	"response_header_size",
	"client_ip",
	"response_code",
	"response_size",
	"request_method",
	"url",
	"username",
	"access_destination_ip",
	"response_type",
}

// Field positions within a line.
const (
	colTimestamp = iota
	colResponseHeaderSize
	colClientIP
	colResponseCode
	colResponseSize
	colRequestMethod
	colURL
	colUsername
	colAccessDestinationIP
	colResponseType
)

// FieldCount is the number of whitespace separated fields on every valid line.
const FieldCount = 10

// Record is one cleaned access-log entry.
type Record struct {
	Timestamp           time.Time `json:"timestamp" yaml:"timestamp"`
	ResponseHeaderSize  int64     `json:"response_header_size" yaml:"response_header_size"`
	ClientIP            string    `json:"client_ip" yaml:"client_ip"`
	ResponseCode        string    `json:"response_code" yaml:"response_code"`
	ResponseSize        int64     `json:"response_size" yaml:"response_size"`
	RequestMethod       string    `json:"request_method" yaml:"request_method"`
	URL                 string    `json:"url" yaml:"url"`
	Username            string    `json:"username" yaml:"username"`
	AccessDestinationIP string    `json:"access_destination_ip" yaml:"access_destination_ip"`
	ResponseType        string    `json:"response_type" yaml:"response_type"`
}

// Chunked reports whether the response size is the "unknown length" sentinel
// (or any other non-positive value).
func (r Record) Chunked() bool {
	return r.ResponseSize <= 0
}

// Collection is the ordered, read-only result of parsing one or more sources.
type Collection struct {
	records []Record
}

// NewCollection builds a collection from already validated records.
// The slice is copied so later changes by the caller are not observed.
func NewCollection(records []Record) *Collection {
	return &Collection{records: slices.Clone(records)}
}

// Len returns the number of records. A nil collection is empty.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// At returns the i-th record in source-then-line order.
func (c *Collection) At(i int) Record {
	return c.records[i]
}

// All iterates the records in order.
func (c *Collection) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		if c == nil {
			return
		}
		for i, r := range c.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Records returns a copy of the underlying records.
func (c *Collection) Records() []Record {
	if c == nil {
		return nil
	}
	return slices.Clone(c.records)
}
