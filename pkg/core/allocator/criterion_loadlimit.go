package allocator

import (
	"fmt"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
)

// LoadLimitCriterion caps the load a group takes on in any single phase.
//
// A placement counts against a group when the worker's WorkerGroup or the
// client's GroupTag equals the group. Each assignment adds one unit of load.
//
// Validity:
//   - Returns false if committing the placement would push the group's load in
//     that phase above MaxSlotsPerPhase
//
// Affinity:
//   - None
type LoadLimitCriterion struct {
	rule rules.LoadLimit
}

// NewLoadLimitCriterion creates a criterion enforcing the given limit
func NewLoadLimitCriterion(rule rules.LoadLimit) *LoadLimitCriterion {
	return &LoadLimitCriterion{rule: rule}
}

func (c *LoadLimitCriterion) Name() string {
	return "LoadLimit"
}

func (c *LoadLimitCriterion) IsPlacementValid(state *AllocationState, placement *Placement) bool {
	if !placement.Touches(c.rule.Group) {
		return true
	}
	return state.GroupLoads.Load(c.rule.Group, placement.Phase)+placementLoad <= c.rule.MaxSlotsPerPhase
}

func (c *LoadLimitCriterion) PhaseAffinity(state *AllocationState, task *model.Task, phase int) float64 {
	return 0
}

// ValidateOutcome recounts load from the assignments rather than trusting the ledger
func (c *LoadLimitCriterion) ValidateOutcome(state *AllocationState) []ValidationError {
	var errors []ValidationError

	workers := make(map[string]*model.Worker, len(state.Workers))
	for _, worker := range state.Workers {
		if _, seen := workers[worker.WorkerID]; !seen {
			workers[worker.WorkerID] = worker
		}
	}
	clients := make(map[string]*model.Client, len(state.Clients))
	for _, entry := range state.Clients {
		if _, seen := clients[entry.Client.ClientID]; !seen {
			clients[entry.Client.ClientID] = entry.Client
		}
	}

	loads := make(map[int]int)
	var phases []int
	for _, assignment := range state.Assignments {
		placement := &Placement{
			Client: clients[assignment.ClientID],
			Worker: workers[assignment.WorkerID],
			Phase:  assignment.Phase,
		}
		if !placement.Touches(c.rule.Group) {
			continue
		}
		if _, seen := loads[assignment.Phase]; !seen {
			phases = append(phases, assignment.Phase)
		}
		loads[assignment.Phase] += placementLoad
	}

	for _, phase := range phases {
		if loads[phase] > c.rule.MaxSlotsPerPhase {
			errors = append(errors, ValidationError{
				CriterionName: c.Name(),
				Group:         c.rule.Group,
				Phase:         phase,
				Description:   fmt.Sprintf("Group %s has load %d in phase %d but limit is %d", c.rule.Group, loads[phase], phase, c.rule.MaxSlotsPerPhase),
			})
		}
	}

	return errors
}
