package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
)

func newTestState(t *testing.T, config AllocationConfig) *AllocationState {
	t.Helper()
	allocator, err := InitAllocation(config)
	require.NoError(t, err)
	return allocator.State()
}

func TestLoadLimitCriterion_Name(t *testing.T) {
	criterion := NewLoadLimitCriterion(rules.LoadLimit{Group: "A", MaxSlotsPerPhase: 1})
	assert.Equal(t, "LoadLimit", criterion.Name())
}

func TestLoadLimitCriterion_IsPlacementValid(t *testing.T) {
	state := newTestState(t, AllocationConfig{})
	criterion := NewLoadLimitCriterion(rules.LoadLimit{Group: "A", MaxSlotsPerPhase: 2})

	inGroup := &Placement{
		Client: &model.Client{ClientID: "C1"},
		Task:   &model.Task{TaskID: "T1"},
		Worker: &model.Worker{WorkerID: "W1", WorkerGroup: "A"},
		Phase:  1,
	}
	otherGroup := &Placement{
		Client: &model.Client{ClientID: "C2"},
		Task:   &model.Task{TaskID: "T1"},
		Worker: &model.Worker{WorkerID: "W2", WorkerGroup: "B"},
		Phase:  1,
	}

	assert.True(t, criterion.IsPlacementValid(state, inGroup))

	state.GroupLoads.Add("A", 1, 2)
	assert.False(t, criterion.IsPlacementValid(state, inGroup), "group is at its limit")
	assert.True(t, criterion.IsPlacementValid(state, otherGroup), "other groups are unaffected")

	inGroup.Phase = 2
	assert.True(t, criterion.IsPlacementValid(state, inGroup), "limits are per phase")
}

func TestLoadLimitCriterion_ValidateOutcome(t *testing.T) {
	state := newTestState(t, AllocationConfig{
		Clients: []model.Client{{ClientID: "C1"}, {ClientID: "C2"}},
		Workers: []model.Worker{sqlWorker("W1", "A")},
	})
	criterion := NewLoadLimitCriterion(rules.LoadLimit{Group: "A", MaxSlotsPerPhase: 1})

	state.Assignments = []model.Assignment{
		{ClientID: "C1", TaskID: "T1", WorkerID: "W1", Phase: 1},
	}
	assert.Empty(t, criterion.ValidateOutcome(state))

	state.Assignments = append(state.Assignments, model.Assignment{ClientID: "C2", TaskID: "T1", WorkerID: "W1", Phase: 1})
	errors := criterion.ValidateOutcome(state)
	require.Len(t, errors, 1)
	assert.Equal(t, "A", errors[0].Group)
	assert.Equal(t, 1, errors[0].Phase)
	assert.Contains(t, errors[0].Description, "load 2")
}
