package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

func TestNormalize_ClientLists(t *testing.T) {
	rows := []model.Row{
		{"ClientID": "C1", "RequestedTaskIDs": "T1, T2 ,T3", "PriorityLevel": "4"},
		{"ClientID": "C2", "RequestedTaskIDs": `["T4","T5"]`, "PriorityLevel": ""},
		{"ClientID": "C3", "RequestedTaskIDs": "", "PriorityLevel": 2.0},
	}

	out := Normalize(model.EntityClients, rows)
	require.Len(t, out, 3)

	assert.Equal(t, []any{"T1", "T2", "T3"}, out[0]["RequestedTaskIDs"])
	assert.Equal(t, 4.0, out[0]["PriorityLevel"])

	assert.Equal(t, []any{"T4", "T5"}, out[1]["RequestedTaskIDs"])
	assert.Nil(t, out[1]["PriorityLevel"])

	assert.Equal(t, []any{}, out[2]["RequestedTaskIDs"])
	assert.Equal(t, 2.0, out[2]["PriorityLevel"])

	// Input rows are left untouched
	assert.Equal(t, "T1, T2 ,T3", rows[0]["RequestedTaskIDs"])
}

func TestNormalize_AttributesJSON(t *testing.T) {
	rows := []model.Row{
		{"ClientID": "C1", "AttributesJSON": `{"location":"NY","budget":100}`},
		{"ClientID": "C2", "AttributesJSON": "not json"},
	}

	out := Normalize(model.EntityClients, rows)
	assert.Equal(t, map[string]any{"location": "NY", "budget": 100.0}, out[0]["AttributesJSON"])
	assert.Equal(t, "not json", out[1]["AttributesJSON"])
}

func TestNormalize_WorkerSlots(t *testing.T) {
	rows := []model.Row{
		{"WorkerID": "W1", "Skills": "sql,python", "AvailableSlots": "[1, 3, 5]", "MaxLoadPerPhase": "2"},
		{"WorkerID": "W2", "Skills": []any{"go"}, "AvailableSlots": "2,x"},
	}

	out := Normalize(model.EntityWorkers, rows)
	assert.Equal(t, []any{"sql", "python"}, out[0]["Skills"])
	assert.Equal(t, []any{1.0, 3.0, 5.0}, out[0]["AvailableSlots"])
	assert.Equal(t, 2.0, out[0]["MaxLoadPerPhase"])

	assert.Equal(t, []any{"go"}, out[1]["Skills"])
	assert.Equal(t, []any{2.0, "x"}, out[1]["AvailableSlots"])
	_, present := out[1]["MaxLoadPerPhase"]
	assert.False(t, present, "absent fields must stay absent")
}

func TestNormalize_TaskPhasesThenValidate(t *testing.T) {
	rows := []model.Row{
		{
			"TaskID":          "T1",
			"Duration":        "2",
			"RequiredSkills":  "sql",
			"PreferredPhases": "[2,3]",
			"MaxConcurrent":   "1",
		},
	}

	out := Normalize(model.EntityTasks, rows)
	assert.Equal(t, []any{2.0, 3.0}, out[0]["PreferredPhases"])
	assert.Empty(t, ValidateTasks(out))
}

func TestNormalize_NonNumericLeftForValidator(t *testing.T) {
	out := Normalize(model.EntityTasks, []model.Row{
		{"TaskID": "T1", "Duration": "long", "RequiredSkills": []any{}, "PreferredPhases": []any{}, "MaxConcurrent": 1},
	})

	assert.Equal(t, "long", out[0]["Duration"])
	assert.Equal(t, []string{"Row 0: Duration must be ≥1"}, ValidateTasks(out))
}

func TestNormalize_NonFiniteNumbersStayText(t *testing.T) {
	rows := []model.Row{
		{"ClientID": "C1", "RequestedTaskIDs": "T1", "PriorityLevel": "NaN"},
		{"ClientID": "C2", "RequestedTaskIDs": "T1", "PriorityLevel": "Inf"},
	}

	out := Normalize(model.EntityClients, rows)
	assert.Equal(t, "NaN", out[0]["PriorityLevel"])
	assert.Equal(t, "Inf", out[1]["PriorityLevel"])
	assert.Equal(t, []string{
		"Row 0: PriorityLevel must be a number",
		"Row 1: PriorityLevel must be a number",
	}, ValidateClients(out))

	slots := Normalize(model.EntityWorkers, []model.Row{{"WorkerID": "W1", "AvailableSlots": "1,NaN"}})
	assert.Equal(t, []any{1.0, "NaN"}, slots[0]["AvailableSlots"])
}
