package allocator

import (
	"fmt"
	"slices"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
)

// SlotRestrictionCriterion requires the workers of a group to share enough phases.
//
// The common slots are the intersection of AvailableSlots across every worker
// whose WorkerGroup equals the group. They are computed once from the input.
//
// Validity:
//   - Returns false for any placement onto a worker of the group when the group
//     shares fewer than MinCommonSlots phases
//
// Affinity:
//   - None
type SlotRestrictionCriterion struct {
	rule        rules.SlotRestriction
	commonSlots []int
	members     int
}

// NewSlotRestrictionCriterion creates a criterion for the rule, evaluated against the given workers
func NewSlotRestrictionCriterion(rule rules.SlotRestriction, workers []*model.Worker) *SlotRestrictionCriterion {
	c := &SlotRestrictionCriterion{rule: rule}

	for _, worker := range workers {
		if worker.WorkerGroup != rule.Group {
			continue
		}
		if c.members == 0 {
			c.commonSlots = uniqueSlots(worker.AvailableSlots)
		} else {
			c.commonSlots = slices.DeleteFunc(c.commonSlots, func(slot int) bool {
				return !worker.IsAvailable(slot)
			})
		}
		c.members++
	}

	return c
}

func uniqueSlots(slots []int) []int {
	out := slices.Clone(slots)
	slices.Sort(out)
	return slices.Compact(out)
}

func (c *SlotRestrictionCriterion) Name() string {
	return "SlotRestriction"
}

// CommonSlots returns the phases every worker of the group is available for
func (c *SlotRestrictionCriterion) CommonSlots() []int {
	return c.commonSlots
}

// Satisfied returns true if the group shares at least MinCommonSlots phases.
// A group with no workers has nothing to restrict and is treated as satisfied.
func (c *SlotRestrictionCriterion) Satisfied() bool {
	return c.members == 0 || len(c.commonSlots) >= c.rule.MinCommonSlots
}

func (c *SlotRestrictionCriterion) IsPlacementValid(state *AllocationState, placement *Placement) bool {
	if placement.Worker.WorkerGroup != c.rule.Group {
		return true
	}
	return c.Satisfied()
}

func (c *SlotRestrictionCriterion) PhaseAffinity(state *AllocationState, task *model.Task, phase int) float64 {
	return 0
}

func (c *SlotRestrictionCriterion) ValidateOutcome(state *AllocationState) []ValidationError {
	if c.Satisfied() {
		return nil
	}

	var errors []ValidationError
	groupWorkers := make(map[string]bool)
	for _, worker := range state.Workers {
		if worker.WorkerGroup == c.rule.Group {
			groupWorkers[worker.WorkerID] = true
		}
	}

	for _, assignment := range state.Assignments {
		if !groupWorkers[assignment.WorkerID] {
			continue
		}
		errors = append(errors, ValidationError{
			CriterionName: c.Name(),
			ClientID:      assignment.ClientID,
			WorkerID:      assignment.WorkerID,
			Group:         c.rule.Group,
			Phase:         assignment.Phase,
			Description:   fmt.Sprintf("Group %s shares %d common slots but %d are required", c.rule.Group, len(c.commonSlots), c.rule.MinCommonSlots),
		})
	}

	return errors
}
