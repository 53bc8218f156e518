package allocator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned when a weight is not a finite number in [0, 1]
var ErrInvalidWeights = errors.New("invalid weights")

// Weights are the caller-tunable ranking weights. Each must lie in [0, 1].
//
// Only Priority influences the processing order today. Fairness and Fulfillment
// are accepted, validated and recorded with the run so callers can tune them
// without a format change once strategies consume them.
type Weights struct {
	Priority    float64 `json:"priority" yaml:"priority"`
	Fairness    float64 `json:"fairness" yaml:"fairness"`
	Fulfillment float64 `json:"fulfillment" yaml:"fulfillment"`
}

// DefaultWeights returns the weights used when the caller supplies none
func DefaultWeights() Weights {
	return Weights{Priority: 0.5, Fairness: 0.5, Fulfillment: 0.5}
}

// Validate checks that every weight is finite and in range
func (w Weights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"priority", w.Priority},
		{"fairness", w.Fairness},
		{"fulfillment", w.Fulfillment},
	}

	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidWeights, f.name)
		}
		if f.value < 0 || f.value > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1, got %v", ErrInvalidWeights, f.name, f.value)
		}
	}
	return nil
}
