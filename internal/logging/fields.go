package logging

import "log/slog"

// Common field names for consistent logging across commands.
const (
	FieldRunID    = "run_id"
	FieldInput    = "input"
	FieldLine     = "line"
	FieldExpected = "expected_fields"
	FieldFields   = "fields"
	FieldDropped  = "dropped"
	FieldRecords  = "records"
	FieldMetric   = "metric"
	FieldOutput   = "output"
	FieldDuration = "duration_ms"
	FieldError    = "error"
)

// RunID returns a slog attribute identifying one analysis run.
func RunID(id string) slog.Attr {
	return slog.String(FieldRunID, id)
}

// Input returns a slog attribute for an input source name.
func Input(name string) slog.Attr {
	return slog.String(FieldInput, name)
}

// Line returns a slog attribute for a 1-based line number.
func Line(n int) slog.Attr {
	return slog.Int(FieldLine, n)
}

// FieldCount returns the attributes describing a field count mismatch.
func FieldCount(expected, actual int) []any {
	return []any{slog.Int(FieldExpected, expected), slog.Int(FieldFields, actual)}
}

// Dropped returns a slog attribute for a number of discarded records.
func Dropped(n int) slog.Attr {
	return slog.Int(FieldDropped, n)
}

// Records returns a slog attribute for a record count.
func Records(n int) slog.Attr {
	return slog.Int(FieldRecords, n)
}

// Metric returns a slog attribute for a metric key.
func Metric(key string) slog.Attr {
	return slog.String(FieldMetric, key)
}

// Output returns a slog attribute for an output destination.
func Output(name string) slog.Attr {
	return slog.String(FieldOutput, name)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
