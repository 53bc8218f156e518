package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
)

func TestPhaseWindowCriterion_IsPlacementValid(t *testing.T) {
	criterion := NewPhaseWindowCriterion(rules.PhaseWindow{TaskID: "T1", AllowedPhases: []int{2, 3}})
	state := newTestState(t, AllocationConfig{})

	placement := func(taskID string, phase int) *Placement {
		return &Placement{
			Client: &model.Client{ClientID: "C1"},
			Task:   &model.Task{TaskID: taskID},
			Worker: &model.Worker{WorkerID: "W1"},
			Phase:  phase,
		}
	}

	assert.True(t, criterion.IsPlacementValid(state, placement("T1", 3)))
	assert.False(t, criterion.IsPlacementValid(state, placement("T1", 1)))
	assert.True(t, criterion.IsPlacementValid(state, placement("T2", 1)), "other tasks are unaffected")
}

func TestPhaseWindowCriterion_ValidateOutcome(t *testing.T) {
	criterion := NewPhaseWindowCriterion(rules.PhaseWindow{TaskID: "T1", AllowedPhases: []int{2}})
	state := newTestState(t, AllocationConfig{})
	state.Assignments = []model.Assignment{
		{ClientID: "C1", TaskID: "T1", WorkerID: "W1", Phase: 2},
		{ClientID: "C2", TaskID: "T1", WorkerID: "W1", Phase: 5},
		{ClientID: "C3", TaskID: "T2", WorkerID: "W1", Phase: 5},
	}

	errors := criterion.ValidateOutcome(state)
	if assert.Len(t, errors, 1) {
		assert.Equal(t, "C2", errors[0].ClientID)
		assert.Equal(t, 5, errors[0].Phase)
	}
}

func TestCandidatePhases(t *testing.T) {
	tests := []struct {
		name     string
		task     model.Task
		rules    []rules.Rule
		expected []int
	}{
		{
			name:     "first preferred phase only",
			task:     model.Task{TaskID: "T1", PreferredPhases: []int{4, 2, 4}},
			expected: []int{4},
		},
		{
			name:     "default phase",
			task:     model.Task{TaskID: "T1"},
			expected: []int{1},
		},
		{
			name:     "window keeps allowed preferences first",
			task:     model.Task{TaskID: "T1", PreferredPhases: []int{5, 1, 3}},
			rules:    []rules.Rule{rules.PhaseWindow{TaskID: "T1", AllowedPhases: []int{6, 3, 5}}},
			expected: []int{5, 3, 6},
		},
		{
			name: "windows intersect",
			task: model.Task{TaskID: "T1"},
			rules: []rules.Rule{
				rules.PhaseWindow{TaskID: "T1", AllowedPhases: []int{1, 2, 3}},
				rules.PhaseWindow{TaskID: "T1", AllowedPhases: []int{3, 2}},
			},
			expected: []int{2, 3},
		},
		{
			name:     "window for another task",
			task:     model.Task{TaskID: "T1", PreferredPhases: []int{2}},
			rules:    []rules.Rule{rules.PhaseWindow{TaskID: "T2", AllowedPhases: []int{7}}},
			expected: []int{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocator, err := InitAllocation(AllocationConfig{Rules: tt.rules})
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, tt.expected, CandidatePhases(allocator.State(), &tt.task, allocator.Criteria()))
		})
	}
}
