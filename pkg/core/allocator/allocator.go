package allocator

import (
	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
)

// Allocator manages a single allocation run
type Allocator struct {
	criteria []Criterion
	strategy Strategy
	state    *AllocationState
}

// AllocationConfig contains the configuration for an allocation run
type AllocationConfig struct {
	// Clients requesting tasks, in input order
	Clients []model.Client

	// Workers available to carry out tasks, in input order
	Workers []model.Worker

	// Tasks that clients may request
	Tasks []model.Task

	// Rules constraining placements
	Rules []rules.Rule

	// Weights controlling client ordering
	Weights Weights

	// DefaultPhase is used for tasks without preferred phases (1 if zero)
	DefaultPhase int

	// EnforceCapacity turns on worker MaxLoadPerPhase and task MaxConcurrent limits
	EnforceCapacity bool

	// Strategy chooses each client's placement (FirstMatchStrategy if nil)
	Strategy Strategy
}

// UnmatchedClient is a client that received no assignment
type UnmatchedClient struct {
	ClientID string          `json:"clientId"`
	Reason   UnmatchedReason `json:"reason"`
}

// AllocationOutcome represents the result of an allocation run
type AllocationOutcome struct {
	// State is the final allocation state
	State *AllocationState

	// Assignments in the order they were committed
	Assignments []model.Assignment

	// Unmatched lists clients that received no assignment
	Unmatched []UnmatchedClient

	// CoRunGaps lists co-run sets that were only partly scheduled
	CoRunGaps []CoRunGap

	// GroupLoads is the final load per (group, phase)
	GroupLoads []LoadEntry

	// ValidationErrors contains any invariant violations found in the final state
	ValidationErrors []ValidationError

	// Success is true when the final state passes validation
	Success bool
}

// Allocate processes every client once, in ranked order, and assigns each at most one task.
// Configuration errors (invalid weights or rules) are returned before any work is done;
// a client that cannot be placed is reported in the outcome, not as an error.
func Allocate(config AllocationConfig) (*AllocationOutcome, error) {

	// Initialise allocator
	allocator, err := InitAllocation(config)
	if err != nil {
		return nil, err
	}

	unmatched := []UnmatchedClient{}

	for _, entry := range allocator.state.Clients {
		placement, reason := allocator.strategy.SelectPlacement(allocator.state, entry, allocator.criteria)
		if placement == nil {
			unmatched = append(unmatched, UnmatchedClient{
				ClientID: entry.Client.ClientID,
				Reason:   reason,
			})
			continue
		}

		allocator.state.Commit(placement)
	}

	return allocator.buildOutcome(unmatched), nil
}

// Criteria returns the criteria compiled for this run
func (a *Allocator) Criteria() []Criterion {
	return a.criteria
}

// State returns the allocation state
func (a *Allocator) State() *AllocationState {
	return a.state
}

// buildOutcome creates the final allocation outcome report
func (a *Allocator) buildOutcome(unmatched []UnmatchedClient) *AllocationOutcome {
	// Initialize with empty slices (not nil) for easier consumption
	outcome := &AllocationOutcome{
		State:            a.state,
		Assignments:      a.state.Assignments,
		Unmatched:        unmatched,
		CoRunGaps:        []CoRunGap{},
		GroupLoads:       a.state.GroupLoads.Entries(),
		ValidationErrors: []ValidationError{},
	}

	for _, criterion := range a.criteria {
		if coRun, ok := criterion.(*CoRunCriterion); ok {
			if gap := coRun.Gap(a.state); gap != nil {
				outcome.CoRunGaps = append(outcome.CoRunGaps, *gap)
			}
		}
	}

	// Run validation
	outcome.ValidationErrors = append(outcome.ValidationErrors, ValidateAllocationState(a.state, a.criteria)...)

	outcome.Success = len(outcome.ValidationErrors) == 0

	return outcome
}
