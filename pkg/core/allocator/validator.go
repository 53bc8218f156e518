package allocator

import (
	"fmt"
	"slices"
)

// ValidateAllocationState validates the final state against the core invariants
// and all provided criteria.
// Returns a slice of validation errors for any constraint violations.
// An empty slice indicates the allocation is valid.
func ValidateAllocationState(state *AllocationState, criteria []Criterion) []ValidationError {
	errors := validateCoreInvariants(state)

	// Run validation for each criterion
	for _, criterion := range criteria {
		criterionErrors := criterion.ValidateOutcome(state)
		errors = append(errors, criterionErrors...)
	}

	return errors
}

// validateCoreInvariants checks properties every allocation must have regardless of rules:
//   - a client holds at most one assignment
//   - every assignment references a known client, task and worker
//   - the worker holds the task's primary skill
func validateCoreInvariants(state *AllocationState) []ValidationError {
	var errors []ValidationError

	clients := make(map[string]bool, len(state.Clients))
	for _, entry := range state.Clients {
		clients[entry.Client.ClientID] = true
	}
	workerSkills := make(map[string][]string, len(state.Workers))
	for _, worker := range state.Workers {
		if _, seen := workerSkills[worker.WorkerID]; !seen {
			workerSkills[worker.WorkerID] = worker.Skills
		}
	}

	assigned := make(map[string]bool, len(state.Assignments))
	for _, assignment := range state.Assignments {
		if assigned[assignment.ClientID] {
			errors = append(errors, coreError(assignment.ClientID, assignment.TaskID, assignment.WorkerID,
				fmt.Sprintf("Client %s holds more than one assignment", assignment.ClientID)))
		}
		assigned[assignment.ClientID] = true

		if !clients[assignment.ClientID] {
			errors = append(errors, coreError(assignment.ClientID, assignment.TaskID, assignment.WorkerID,
				fmt.Sprintf("Assignment references unknown client %s", assignment.ClientID)))
		}

		task := state.Task(assignment.TaskID)
		if task == nil {
			errors = append(errors, coreError(assignment.ClientID, assignment.TaskID, assignment.WorkerID,
				fmt.Sprintf("Assignment references unknown task %s", assignment.TaskID)))
			continue
		}

		skills, known := workerSkills[assignment.WorkerID]
		if !known {
			errors = append(errors, coreError(assignment.ClientID, assignment.TaskID, assignment.WorkerID,
				fmt.Sprintf("Assignment references unknown worker %s", assignment.WorkerID)))
			continue
		}

		skill, _ := task.PrimarySkill()
		if !slices.Contains(skills, skill) {
			errors = append(errors, coreError(assignment.ClientID, assignment.TaskID, assignment.WorkerID,
				fmt.Sprintf("Worker %s lacks skill %q required by task %s", assignment.WorkerID, skill, assignment.TaskID)))
		}
	}

	return errors
}

func coreError(clientID, taskID, workerID, description string) ValidationError {
	return ValidationError{
		CriterionName: "Core",
		ClientID:      clientID,
		TaskID:        taskID,
		WorkerID:      workerID,
		Description:   description,
	}
}
