package allocator

import "github.com/jakechorley/resource-allocator/pkg/core/model"

// ValidationError represents a violated invariant found in a finished allocation
type ValidationError struct {
	CriterionName string `json:"criterion"`
	ClientID      string `json:"clientId,omitempty"`
	TaskID        string `json:"taskId,omitempty"`
	WorkerID      string `json:"workerId,omitempty"`
	Group         string `json:"group,omitempty"`
	Phase         int    `json:"phase,omitempty"`
	Description   string `json:"description"`
}

// Criterion defines the interface for allocation constraints.
// Rules compile into criteria; capacity limits are criteria in their own right.
type Criterion interface {
	// Name returns a human-readable identifier for this criterion
	Name() string

	// IsPlacementValid determines if a placement may be committed in the current state
	// This acts as a veto - if ANY criterion returns false, the placement is rejected
	IsPlacementValid(state *AllocationState, placement *Placement) bool

	// PhaseAffinity scores how well a phase suits a task, between 0.0 and 1.0
	// Candidate phases with higher total affinity are tried first; ties keep their order
	// Return 0 if this criterion doesn't affect phase selection
	PhaseAffinity(state *AllocationState, task *model.Task, phase int) float64

	// ValidateOutcome checks the final state against this criterion
	// Returns a slice of validation errors (empty if all valid)
	ValidateOutcome(state *AllocationState) []ValidationError
}
