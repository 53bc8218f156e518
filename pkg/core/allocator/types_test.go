package allocator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

func TestPlacement_Groups(t *testing.T) {
	p := &Placement{
		Client: &model.Client{GroupTag: "A"},
		Worker: &model.Worker{WorkerGroup: "A"},
	}
	assert.Equal(t, []string{"A"}, p.Groups(), "a shared group counts once")

	p.Client.GroupTag = "Retail"
	assert.Equal(t, []string{"A", "Retail"}, p.Groups())
	assert.True(t, p.Touches("Retail"))
	assert.False(t, p.Touches("B"))

	assert.Empty(t, (&Placement{Client: &model.Client{}, Worker: &model.Worker{}}).Groups())
}

func TestLoadLedger(t *testing.T) {
	ledger := NewLoadLedger()
	ledger.Add("B", 2, 1)
	ledger.Add("A", 3, 1)
	ledger.Add("A", 1, 2)
	ledger.Add("A", 3, 1)

	assert.Equal(t, 2, ledger.Load("A", 3))
	assert.Equal(t, 0, ledger.Load("C", 1))
	assert.Equal(t, []LoadEntry{
		{Key: "A", Phase: 1, Load: 2},
		{Key: "A", Phase: 3, Load: 2},
		{Key: "B", Phase: 2, Load: 1},
	}, ledger.Entries())
}

func TestAllocationState_Commit(t *testing.T) {
	state := newTestState(t, AllocationConfig{})

	assignment := state.Commit(&Placement{
		Client: &model.Client{ClientID: "C1", GroupTag: "Retail"},
		Task:   &model.Task{TaskID: "T1"},
		Worker: &model.Worker{WorkerID: "W1", WorkerGroup: "A"},
		Phase:  2,
	})

	assert.Equal(t, model.Assignment{ClientID: "C1", TaskID: "T1", WorkerID: "W1", Phase: 2}, assignment)
	assert.True(t, state.IsAssigned("C1"))
	assert.Equal(t, 1, state.GroupLoads.Load("A", 2))
	assert.Equal(t, 1, state.GroupLoads.Load("Retail", 2))
	assert.Equal(t, 1, state.WorkerLoads.Load("W1", 2))
	assert.Equal(t, 1, state.TaskLoads.Load("T1", 2))
	assert.Equal(t, []int{2}, state.TaskPhases("T1"))
}

func TestInitAllocation_FirstTaskOccurrenceWins(t *testing.T) {
	state := newTestState(t, AllocationConfig{
		Tasks: []model.Task{
			{TaskID: "T1", TaskName: "first"},
			{TaskID: "T1", TaskName: "second"},
		},
	})

	require.NotNil(t, state.Task("T1"))
	assert.Equal(t, "first", state.Task("T1").TaskName)
	assert.Equal(t, 1, state.DefaultPhase)
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.NoError(t, Weights{Priority: 1, Fairness: 0, Fulfillment: 1}.Validate())
	assert.ErrorIs(t, Weights{Fulfillment: math.Inf(-1)}.Validate(), ErrInvalidWeights)
	assert.ErrorIs(t, Weights{Priority: 1.01}.Validate(), ErrInvalidWeights)
}

func TestUnmatchedReason_MarshalText(t *testing.T) {
	text, err := ReasonNoSkilledWorker.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "no worker has the required skill", string(text))
}
