package seeder

import (
	"fmt"
	"time"
)

// Config controls the synthetic access log.
type Config struct {
	Count          int
	Clients        int
	Start          time.Time
	Spread         time.Duration
	MalformedRatio float64
	ChunkedRatio   float64
	Seed           int64
}

// DefaultConfig returns the built-in seeder settings.
func DefaultConfig() Config {
	return Config{
		Count:          1000,
		Clients:        25,
		Spread:         time.Hour,
		MalformedRatio: 0.02,
		ChunkedRatio:   0.05,
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", c.Count)
	}
	if c.Clients < 1 {
		return fmt.Errorf("clients must be at least 1, got %d", c.Clients)
	}
	if c.Spread < 0 {
		return fmt.Errorf("spread must not be negative, got %s", c.Spread)
	}
	if c.MalformedRatio < 0 || c.MalformedRatio > 1 {
		return fmt.Errorf("malformed_ratio must be within [0, 1], got %g", c.MalformedRatio)
	}
	if c.ChunkedRatio < 0 || c.ChunkedRatio > 1 {
		return fmt.Errorf("chunked_ratio must be within [0, 1], got %g", c.ChunkedRatio)
	}
	return nil
}
