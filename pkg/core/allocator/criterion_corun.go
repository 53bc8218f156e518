package allocator

import (
	"slices"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
)

// CoRunGap reports a co-run set that was only partly scheduled
type CoRunGap struct {
	Tasks     []string `json:"tasks"`
	Scheduled []string `json:"scheduled"`
	Missing   []string `json:"missing"`
}

// CoRunCriterion is a best-effort hint that the listed tasks run in the same phase.
//
// Validity:
//   - Never vetoes a placement
//
// Affinity:
//   - Returns 1.0 for a phase that another task of the set is already scheduled in
//
// A set that ends up partly scheduled is reported through Gap rather than as a
// validation error.
type CoRunCriterion struct {
	rule rules.CoRun
}

// NewCoRunCriterion creates a criterion for the given co-run set
func NewCoRunCriterion(rule rules.CoRun) *CoRunCriterion {
	return &CoRunCriterion{rule: rule}
}

func (c *CoRunCriterion) Name() string {
	return "CoRun"
}

func (c *CoRunCriterion) IsPlacementValid(state *AllocationState, placement *Placement) bool {
	return true
}

func (c *CoRunCriterion) PhaseAffinity(state *AllocationState, task *model.Task, phase int) float64 {
	if !c.rule.Contains(task.TaskID) {
		return 0
	}
	for _, partner := range c.rule.Tasks {
		if partner == task.TaskID {
			continue
		}
		if slices.Contains(state.TaskPhases(partner), phase) {
			return 1
		}
	}
	return 0
}

func (c *CoRunCriterion) ValidateOutcome(state *AllocationState) []ValidationError {
	return nil
}

// Gap returns the partly scheduled portion of the set, or nil if the set was
// scheduled entirely or not at all
func (c *CoRunCriterion) Gap(state *AllocationState) *CoRunGap {
	gap := &CoRunGap{
		Tasks:     slices.Clone(c.rule.Tasks),
		Scheduled: []string{},
		Missing:   []string{},
	}
	for _, taskID := range c.rule.Tasks {
		if len(state.TaskPhases(taskID)) > 0 {
			gap.Scheduled = append(gap.Scheduled, taskID)
		} else {
			gap.Missing = append(gap.Missing, taskID)
		}
	}

	if len(gap.Scheduled) == 0 || len(gap.Missing) == 0 {
		return nil
	}
	return gap
}
