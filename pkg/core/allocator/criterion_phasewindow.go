package allocator

import (
	"fmt"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
)

// PhaseWindowCriterion keeps a task inside its allowed phases.
//
// Validity:
//   - Returns false if the placement schedules the window's task outside AllowedPhases
//   - Placements for other tasks are unaffected
//
// Affinity:
//   - None. Candidate phases for windowed tasks are already restricted to the window.
type PhaseWindowCriterion struct {
	rule rules.PhaseWindow
}

// NewPhaseWindowCriterion creates a criterion enforcing the given window
func NewPhaseWindowCriterion(rule rules.PhaseWindow) *PhaseWindowCriterion {
	return &PhaseWindowCriterion{rule: rule}
}

func (c *PhaseWindowCriterion) Name() string {
	return "PhaseWindow"
}

func (c *PhaseWindowCriterion) IsPlacementValid(state *AllocationState, placement *Placement) bool {
	if placement.Task.TaskID != c.rule.TaskID {
		return true
	}
	return c.rule.Allows(placement.Phase)
}

func (c *PhaseWindowCriterion) PhaseAffinity(state *AllocationState, task *model.Task, phase int) float64 {
	return 0
}

func (c *PhaseWindowCriterion) ValidateOutcome(state *AllocationState) []ValidationError {
	var errors []ValidationError

	for _, assignment := range state.Assignments {
		if assignment.TaskID != c.rule.TaskID || c.rule.Allows(assignment.Phase) {
			continue
		}
		errors = append(errors, ValidationError{
			CriterionName: c.Name(),
			ClientID:      assignment.ClientID,
			TaskID:        assignment.TaskID,
			WorkerID:      assignment.WorkerID,
			Phase:         assignment.Phase,
			Description:   fmt.Sprintf("Task %s scheduled in phase %d outside allowed phases %v", assignment.TaskID, assignment.Phase, c.rule.AllowedPhases),
		})
	}

	return errors
}
