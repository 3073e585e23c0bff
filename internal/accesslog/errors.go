package accesslog

import "fmt"

// SourceError reports an input source that could not be opened or read.
// It is fatal to the run; malformed lines never produce one.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("read source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
