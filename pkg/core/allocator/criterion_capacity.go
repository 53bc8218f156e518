package allocator

import (
	"fmt"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

// WorkerCapacityCriterion enforces a worker's MaxLoadPerPhase.
// Workers with a non-positive MaxLoadPerPhase are unlimited.
type WorkerCapacityCriterion struct{}

// NewWorkerCapacityCriterion creates the criterion
func NewWorkerCapacityCriterion() *WorkerCapacityCriterion {
	return &WorkerCapacityCriterion{}
}

func (c *WorkerCapacityCriterion) Name() string {
	return "WorkerCapacity"
}

func (c *WorkerCapacityCriterion) IsPlacementValid(state *AllocationState, placement *Placement) bool {
	limit := placement.Worker.MaxLoadPerPhase
	if limit <= 0 {
		return true
	}
	return state.WorkerLoads.Load(placement.Worker.WorkerID, placement.Phase)+placementLoad <= limit
}

func (c *WorkerCapacityCriterion) PhaseAffinity(state *AllocationState, task *model.Task, phase int) float64 {
	return 0
}

func (c *WorkerCapacityCriterion) ValidateOutcome(state *AllocationState) []ValidationError {
	var errors []ValidationError

	limits := make(map[string]int)
	for _, worker := range state.Workers {
		if _, seen := limits[worker.WorkerID]; !seen {
			limits[worker.WorkerID] = worker.MaxLoadPerPhase
		}
	}

	for _, entry := range state.WorkerLoads.Entries() {
		limit := limits[entry.Key]
		if limit > 0 && entry.Load > limit {
			errors = append(errors, ValidationError{
				CriterionName: c.Name(),
				WorkerID:      entry.Key,
				Phase:         entry.Phase,
				Description:   fmt.Sprintf("Worker %s has load %d in phase %d but capacity is %d", entry.Key, entry.Load, entry.Phase, limit),
			})
		}
	}

	return errors
}

// TaskConcurrencyCriterion enforces a task's MaxConcurrent per phase.
// Tasks with a non-positive MaxConcurrent are unlimited.
type TaskConcurrencyCriterion struct{}

// NewTaskConcurrencyCriterion creates the criterion
func NewTaskConcurrencyCriterion() *TaskConcurrencyCriterion {
	return &TaskConcurrencyCriterion{}
}

func (c *TaskConcurrencyCriterion) Name() string {
	return "TaskConcurrency"
}

func (c *TaskConcurrencyCriterion) IsPlacementValid(state *AllocationState, placement *Placement) bool {
	limit := placement.Task.MaxConcurrent
	if limit <= 0 {
		return true
	}
	return state.TaskLoads.Load(placement.Task.TaskID, placement.Phase)+placementLoad <= limit
}

func (c *TaskConcurrencyCriterion) PhaseAffinity(state *AllocationState, task *model.Task, phase int) float64 {
	return 0
}

func (c *TaskConcurrencyCriterion) ValidateOutcome(state *AllocationState) []ValidationError {
	var errors []ValidationError

	for _, entry := range state.TaskLoads.Entries() {
		task := state.Task(entry.Key)
		if task == nil || task.MaxConcurrent <= 0 || entry.Load <= task.MaxConcurrent {
			continue
		}
		errors = append(errors, ValidationError{
			CriterionName: c.Name(),
			TaskID:        entry.Key,
			Phase:         entry.Phase,
			Description:   fmt.Sprintf("Task %s runs %d times in phase %d but at most %d are allowed", entry.Key, entry.Load, entry.Phase, task.MaxConcurrent),
		})
	}

	return errors
}
