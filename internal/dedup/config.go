package dedup

import (
	"errors"
	"fmt"
	"math"
)

// Defaults for Config.
const (
	DefaultSimilarityThreshold = 0.6
	DefaultDateWindowDays      = 5
)

// Config is the matching policy. It is built once at startup and passed by
// value; nothing in this package reads ambient state.
type Config struct {
	SimilarityThreshold float64 // minimum description similarity, in [0,1]
	DateWindowDays      int     // maximum absolute day difference, inclusive
}

// DefaultConfig returns the default matching policy.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: DefaultSimilarityThreshold,
		DateWindowDays:      DefaultDateWindowDays,
	}
}

// Validate checks that the policy values are in range.
func (c Config) Validate() error {
	var errs []error
	if t := c.SimilarityThreshold; math.IsNaN(t) || t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("similarity threshold %v outside [0,1]", c.SimilarityThreshold))
	}
	if c.DateWindowDays < 0 {
		errs = append(errs, fmt.Errorf("date window %d is negative", c.DateWindowDays))
	}
	return errors.Join(errs...)
}
