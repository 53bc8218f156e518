package allocator

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
)

func sqlTask(id string, phases ...int) model.Task {
	return model.Task{TaskID: id, Duration: 1, RequiredSkills: []string{"sql"}, PreferredPhases: phases}
}

func sqlWorker(id, group string) model.Worker {
	return model.Worker{WorkerID: id, Skills: []string{"sql"}, WorkerGroup: group}
}

func TestAllocate_SingleMatch(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{{ClientID: "C1", PriorityLevel: 5, RequestedTaskIDs: []string{"T1"}}},
		Workers: []model.Worker{{WorkerID: "W1", Skills: []string{"sql"}}},
		Tasks:   []model.Task{sqlTask("T1", 2)},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	assert.Equal(t, []model.Assignment{{ClientID: "C1", TaskID: "T1", WorkerID: "W1", Phase: 2}}, outcome.Assignments)
	assert.Empty(t, outcome.Unmatched)
	assert.Empty(t, outcome.ValidationErrors)
	assert.True(t, outcome.Success)
}

func TestAllocate_NoSkilledWorker(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{{ClientID: "C1", PriorityLevel: 5, RequestedTaskIDs: []string{"T1"}}},
		Workers: []model.Worker{{WorkerID: "W1", Skills: []string{"java"}}},
		Tasks:   []model.Task{sqlTask("T1", 2)},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	assert.Empty(t, outcome.Assignments)
	assert.Empty(t, outcome.ValidationErrors)
	require.Len(t, outcome.Unmatched, 1)
	assert.Equal(t, UnmatchedClient{ClientID: "C1", Reason: ReasonNoSkilledWorker}, outcome.Unmatched[0])
	assert.True(t, outcome.Success, "a partial allocation is still a successful run")
}

func TestAllocate_DefaultPhase(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{{ClientID: "C1", RequestedTaskIDs: []string{"T1"}}},
		Workers: []model.Worker{sqlWorker("W1", "")},
		Tasks:   []model.Task{sqlTask("T1")},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	require.Len(t, outcome.Assignments, 1)
	assert.Equal(t, 1, outcome.Assignments[0].Phase)
}

func TestAllocate_PriorityOrder(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{
			{ClientID: "Low", PriorityLevel: 1, RequestedTaskIDs: []string{"T1"}},
			{ClientID: "High", PriorityLevel: 9, RequestedTaskIDs: []string{"T1"}},
			{ClientID: "Mid", PriorityLevel: 4, RequestedTaskIDs: []string{"T1"}},
		},
		Workers: []model.Worker{sqlWorker("W1", "")},
		Tasks:   []model.Task{sqlTask("T1", 1)},
		Weights: Weights{Priority: 1},
	})

	require.NoError(t, err)
	var order []string
	for _, a := range outcome.Assignments {
		order = append(order, a.ClientID)
	}
	assert.Equal(t, []string{"High", "Mid", "Low"}, order)
}

func TestAllocate_FirstFeasibleTaskWins(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{{ClientID: "C1", RequestedTaskIDs: []string{"missing", "T2", "T1"}}},
		Workers: []model.Worker{sqlWorker("W1", "")},
		Tasks:   []model.Task{sqlTask("T1", 1), sqlTask("T2", 3)},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	require.Len(t, outcome.Assignments, 1, "a client receives at most one assignment")
	assert.Equal(t, "T2", outcome.Assignments[0].TaskID)
	assert.Equal(t, 3, outcome.Assignments[0].Phase)
}

func TestAllocate_UnresolvableReferences(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{
			{ClientID: "NoTasks"},
			{ClientID: "Unknown", RequestedTaskIDs: []string{"T9"}},
			{ClientID: "NoSkill", RequestedTaskIDs: []string{"T0"}},
		},
		Workers: []model.Worker{sqlWorker("W1", "")},
		Tasks:   []model.Task{{TaskID: "T0", Duration: 1}},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	assert.Empty(t, outcome.Assignments)
	assert.Equal(t, []UnmatchedClient{
		{ClientID: "NoTasks", Reason: ReasonNoRequestedTasks},
		{ClientID: "Unknown", Reason: ReasonTaskNotFound},
		{ClientID: "NoSkill", Reason: ReasonNoRequiredSkill},
	}, outcome.Unmatched)
}

func TestAllocate_LoadLimitFallsBackToNextWorker(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{
			{ClientID: "C1", PriorityLevel: 3, RequestedTaskIDs: []string{"T1"}},
			{ClientID: "C2", PriorityLevel: 2, RequestedTaskIDs: []string{"T1"}},
			{ClientID: "C3", PriorityLevel: 1, RequestedTaskIDs: []string{"T1"}},
		},
		Workers: []model.Worker{sqlWorker("W1", "A"), sqlWorker("W2", "B")},
		Tasks:   []model.Task{sqlTask("T1", 1)},
		Rules: []rules.Rule{
			rules.LoadLimit{Group: "A", MaxSlotsPerPhase: 1},
			rules.LoadLimit{Group: "B", MaxSlotsPerPhase: 1},
		},
		Weights: Weights{Priority: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, []model.Assignment{
		{ClientID: "C1", TaskID: "T1", WorkerID: "W1", Phase: 1},
		{ClientID: "C2", TaskID: "T1", WorkerID: "W2", Phase: 1},
	}, outcome.Assignments)
	assert.Equal(t, []UnmatchedClient{{ClientID: "C3", Reason: ReasonConstraintsBlocked}}, outcome.Unmatched)
	assert.Equal(t, []LoadEntry{
		{Key: "A", Phase: 1, Load: 1},
		{Key: "B", Phase: 1, Load: 1},
	}, outcome.GroupLoads)
	assert.True(t, outcome.Success)
}

func TestAllocate_LoadLimitDoesNotMoveToLaterPreferredPhase(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{
			{ClientID: "C1", PriorityLevel: 2, RequestedTaskIDs: []string{"T1"}},
			{ClientID: "C2", PriorityLevel: 1, RequestedTaskIDs: []string{"T1"}},
		},
		Workers: []model.Worker{sqlWorker("W1", "G")},
		Tasks:   []model.Task{sqlTask("T1", 2, 3)},
		Rules:   []rules.Rule{rules.LoadLimit{Group: "G", MaxSlotsPerPhase: 1}},
		Weights: Weights{Priority: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, []model.Assignment{
		{ClientID: "C1", TaskID: "T1", WorkerID: "W1", Phase: 2},
	}, outcome.Assignments)
	assert.Equal(t, []UnmatchedClient{{ClientID: "C2", Reason: ReasonConstraintsBlocked}}, outcome.Unmatched)
}

func TestAllocate_DuplicateClientFirstOccurrenceWins(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{
			{ClientID: "C1", PriorityLevel: 4, RequestedTaskIDs: []string{"T1"}},
			{ClientID: "C1", PriorityLevel: 5, RequestedTaskIDs: []string{"T1"}},
		},
		Workers: []model.Worker{sqlWorker("W1", "")},
		Tasks:   []model.Task{sqlTask("T1", 2)},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	assert.Equal(t, []model.Assignment{
		{ClientID: "C1", TaskID: "T1", WorkerID: "W1", Phase: 2},
	}, outcome.Assignments)
	require.Len(t, outcome.State.Clients, 1)
	assert.Equal(t, 4.0, outcome.State.Clients[0].Client.PriorityLevel)
	assert.Empty(t, outcome.Unmatched)
	assert.True(t, outcome.Success)
}

func TestAllocate_LoadLimitCountsClientGroup(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{
			{ClientID: "C1", GroupTag: "Retail", RequestedTaskIDs: []string{"T1"}},
			{ClientID: "C2", GroupTag: "Retail", RequestedTaskIDs: []string{"T1"}},
		},
		Workers: []model.Worker{sqlWorker("W1", ""), sqlWorker("W2", "")},
		Tasks:   []model.Task{sqlTask("T1", 1)},
		Rules:   []rules.Rule{rules.LoadLimit{Group: "Retail", MaxSlotsPerPhase: 1}},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	require.Len(t, outcome.Assignments, 1)
	assert.Equal(t, "C1", outcome.Assignments[0].ClientID)
}

func TestAllocate_PhaseWindowOverridesPreference(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{{ClientID: "C1", RequestedTaskIDs: []string{"T1"}}},
		Workers: []model.Worker{sqlWorker("W1", "")},
		Tasks:   []model.Task{sqlTask("T1", 2)},
		Rules:   []rules.Rule{rules.PhaseWindow{TaskID: "T1", AllowedPhases: []int{4, 3}}},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	require.Len(t, outcome.Assignments, 1)
	assert.Equal(t, 3, outcome.Assignments[0].Phase, "lowest allowed phase is used when no preference fits")
}

func TestAllocate_PhaseWindowKeepsAllowedPreference(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{{ClientID: "C1", RequestedTaskIDs: []string{"T1"}}},
		Workers: []model.Worker{sqlWorker("W1", "")},
		Tasks:   []model.Task{sqlTask("T1", 1, 5)},
		Rules:   []rules.Rule{rules.PhaseWindow{TaskID: "T1", AllowedPhases: []int{2, 5}}},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	require.Len(t, outcome.Assignments, 1)
	assert.Equal(t, 5, outcome.Assignments[0].Phase)
}

func TestAllocate_ConflictingPhaseWindows(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{{ClientID: "C1", RequestedTaskIDs: []string{"T1"}}},
		Workers: []model.Worker{sqlWorker("W1", "")},
		Tasks:   []model.Task{sqlTask("T1", 1)},
		Rules: []rules.Rule{
			rules.PhaseWindow{TaskID: "T1", AllowedPhases: []int{1}},
			rules.PhaseWindow{TaskID: "T1", AllowedPhases: []int{2}},
		},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	assert.Empty(t, outcome.Assignments)
	assert.Equal(t, []UnmatchedClient{{ClientID: "C1", Reason: ReasonConstraintsBlocked}}, outcome.Unmatched)
}

func TestAllocate_SlotRestrictionSkipsInfeasibleGroup(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{{ClientID: "C1", RequestedTaskIDs: []string{"T1"}}},
		Workers: []model.Worker{
			{WorkerID: "W1", Skills: []string{"sql"}, WorkerGroup: "A", AvailableSlots: []int{1, 2}},
			{WorkerID: "W2", Skills: []string{"java"}, WorkerGroup: "A", AvailableSlots: []int{3}},
			{WorkerID: "W3", Skills: []string{"sql"}, WorkerGroup: "B"},
		},
		Tasks:   []model.Task{sqlTask("T1", 1)},
		Rules:   []rules.Rule{rules.SlotRestriction{Group: "A", MinCommonSlots: 1}},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	require.Len(t, outcome.Assignments, 1)
	assert.Equal(t, "W3", outcome.Assignments[0].WorkerID)
}

func TestAllocate_CoRunPrefersPartnerPhase(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{
			{ClientID: "C1", RequestedTaskIDs: []string{"T1"}},
			{ClientID: "C2", RequestedTaskIDs: []string{"T2"}},
		},
		Workers: []model.Worker{sqlWorker("W1", "")},
		Tasks:   []model.Task{sqlTask("T1", 3), sqlTask("T2", 1)},
		Rules: []rules.Rule{
			rules.CoRun{Tasks: []string{"T1", "T2"}},
			rules.PhaseWindow{TaskID: "T2", AllowedPhases: []int{1, 3}},
		},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	require.Len(t, outcome.Assignments, 2)
	assert.Equal(t, 3, outcome.Assignments[1].Phase, "affinity reorders phases inside the window")
	assert.Empty(t, outcome.CoRunGaps)
}

func TestAllocate_CoRunGapReported(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{
		Clients: []model.Client{{ClientID: "C1", RequestedTaskIDs: []string{"T1"}}},
		Workers: []model.Worker{sqlWorker("W1", "")},
		Tasks:   []model.Task{sqlTask("T1", 1), sqlTask("T2", 1)},
		Rules:   []rules.Rule{rules.CoRun{Tasks: []string{"T1", "T2"}}},
		Weights: DefaultWeights(),
	})

	require.NoError(t, err)
	assert.Equal(t, []CoRunGap{{
		Tasks:     []string{"T1", "T2"},
		Scheduled: []string{"T1"},
		Missing:   []string{"T2"},
	}}, outcome.CoRunGaps)
	assert.True(t, outcome.Success, "co-run is a hint, not a hard constraint")
}

func TestAllocate_EnforceCapacity(t *testing.T) {
	config := AllocationConfig{
		Clients: []model.Client{
			{ClientID: "C1", RequestedTaskIDs: []string{"T1"}},
			{ClientID: "C2", RequestedTaskIDs: []string{"T1"}},
		},
		Workers: []model.Worker{
			{WorkerID: "W1", Skills: []string{"sql"}, MaxLoadPerPhase: 1},
			{WorkerID: "W2", Skills: []string{"sql"}},
		},
		Tasks:   []model.Task{sqlTask("T1", 1)},
		Weights: DefaultWeights(),
	}

	relaxed, err := Allocate(config)
	require.NoError(t, err)
	assert.Equal(t, "W1", relaxed.Assignments[1].WorkerID)

	config.EnforceCapacity = true
	enforced, err := Allocate(config)
	require.NoError(t, err)
	assert.Equal(t, "W2", enforced.Assignments[1].WorkerID)
	assert.Empty(t, enforced.ValidationErrors)
}

func TestAllocate_InvalidWeights(t *testing.T) {
	tests := []Weights{
		{Priority: math.NaN()},
		{Priority: math.Inf(1)},
		{Priority: 1.5},
		{Fairness: -0.1},
	}

	for _, weights := range tests {
		t.Run(fmt.Sprintf("%+v", weights), func(t *testing.T) {
			_, err := Allocate(AllocationConfig{Weights: weights})
			assert.ErrorIs(t, err, ErrInvalidWeights)
		})
	}
}

func TestAllocate_InvalidRules(t *testing.T) {
	_, err := Allocate(AllocationConfig{
		Rules:   []rules.Rule{rules.LoadLimit{Group: "A", MaxSlotsPerPhase: 0}},
		Weights: DefaultWeights(),
	})
	assert.ErrorIs(t, err, ErrInvalidRules)

	_, err = Allocate(AllocationConfig{
		Rules:   []rules.Rule{nil},
		Weights: DefaultWeights(),
	})
	assert.ErrorIs(t, err, ErrInvalidRules)
	assert.ErrorIs(t, err, rules.ErrUnknownRule)
}

// largeConfig builds a batch that exercises every rule kind
func largeConfig() AllocationConfig {
	var config AllocationConfig
	for i := range 40 {
		config.Clients = append(config.Clients, model.Client{
			ClientID:         fmt.Sprintf("C%d", i),
			PriorityLevel:    float64(i % 5),
			GroupTag:         []string{"", "Retail", "Gov"}[i%3],
			RequestedTaskIDs: []string{fmt.Sprintf("T%d", i%7), fmt.Sprintf("T%d", (i+3)%7)},
		})
	}
	skills := []string{"sql", "go", "ops"}
	for i := range 9 {
		config.Workers = append(config.Workers, model.Worker{
			WorkerID:       fmt.Sprintf("W%d", i),
			Skills:         []string{skills[i%3]},
			WorkerGroup:    []string{"A", "B", "C"}[i%3],
			AvailableSlots: []int{1, 2, 3},
		})
	}
	for i := range 7 {
		config.Tasks = append(config.Tasks, model.Task{
			TaskID:          fmt.Sprintf("T%d", i),
			Duration:        1,
			RequiredSkills:  []string{skills[i%3]},
			PreferredPhases: []int{i%3 + 1},
		})
	}
	config.Rules = []rules.Rule{
		rules.LoadLimit{Group: "A", MaxSlotsPerPhase: 2},
		rules.LoadLimit{Group: "Retail", MaxSlotsPerPhase: 3},
		rules.PhaseWindow{TaskID: "T1", AllowedPhases: []int{2, 3}},
		rules.SlotRestriction{Group: "C", MinCommonSlots: 2},
		rules.CoRun{Tasks: []string{"T2", "T5"}},
	}
	config.Weights = Weights{Priority: 0.7, Fairness: 0.2, Fulfillment: 0.9}
	return config
}

func TestAllocate_Deterministic(t *testing.T) {
	first, err := Allocate(largeConfig())
	require.NoError(t, err)
	second, err := Allocate(largeConfig())
	require.NoError(t, err)

	assert.Equal(t, first.Assignments, second.Assignments)
	assert.Equal(t, first.Unmatched, second.Unmatched)
}

func TestAllocate_Invariants(t *testing.T) {
	config := largeConfig()
	outcome, err := Allocate(config)
	require.NoError(t, err)
	require.NotEmpty(t, outcome.Assignments)

	// At most one assignment per client
	seen := make(map[string]bool)
	for _, a := range outcome.Assignments {
		assert.False(t, seen[a.ClientID], "client %s assigned twice", a.ClientID)
		seen[a.ClientID] = true
	}
	assert.Equal(t, len(config.Clients), len(outcome.Assignments)+len(outcome.Unmatched))

	// Phase window
	for _, a := range outcome.Assignments {
		if a.TaskID == "T1" {
			assert.Contains(t, []int{2, 3}, a.Phase)
		}
	}

	// Load limits
	for _, entry := range outcome.GroupLoads {
		switch entry.Key {
		case "A":
			assert.LessOrEqual(t, entry.Load, 2)
		case "Retail":
			assert.LessOrEqual(t, entry.Load, 3)
		}
	}

	assert.Empty(t, outcome.ValidationErrors)
	assert.True(t, outcome.Success)
}

func TestAllocate_AssignmentsFollowProcessingOrder(t *testing.T) {
	outcome, err := Allocate(largeConfig())
	require.NoError(t, err)

	position := make(map[string]int)
	for i, entry := range outcome.State.Clients {
		position[entry.Client.ClientID] = i
	}
	for i := 1; i < len(outcome.Assignments); i++ {
		assert.Less(t, position[outcome.Assignments[i-1].ClientID], position[outcome.Assignments[i].ClientID])
	}
}

// recordingStrategy wraps FirstMatchStrategy and records which clients it saw
type recordingStrategy struct {
	seen []string
}

func (s *recordingStrategy) Name() string { return "recording" }

func (s *recordingStrategy) SelectPlacement(state *AllocationState, entry *ClientEntry, criteria []Criterion) (*Placement, UnmatchedReason) {
	s.seen = append(s.seen, entry.Client.ClientID)
	return FirstMatchStrategy{}.SelectPlacement(state, entry, criteria)
}

func TestAllocate_CustomStrategy(t *testing.T) {
	strategy := &recordingStrategy{}
	_, err := Allocate(AllocationConfig{
		Clients: []model.Client{
			{ClientID: "C1", PriorityLevel: 1},
			{ClientID: "C2", PriorityLevel: 2},
		},
		Weights:  Weights{Priority: 1},
		Strategy: strategy,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"C2", "C1"}, strategy.seen)
}
