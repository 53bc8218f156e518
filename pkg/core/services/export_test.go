package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/phases"
)

func TestExportAssignmentsCSV(t *testing.T) {
	assignments := []model.Assignment{
		{ClientID: "C2", TaskID: "T1", WorkerID: "W1", Phase: 2},
		{ClientID: "C1", TaskID: "T1", WorkerID: "W1", Phase: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportAssignmentsCSV(&buf, assignments, nil))
	assert.Equal(t, "ClientID,TaskID,WorkerID,Phase\nC2,T1,W1,2\nC1,T1,W1,1\n", buf.String())
}

func TestExportAssignmentsCSV_WithCalendar(t *testing.T) {
	calendar, err := phases.ParseCalendar("FREQ=WEEKLY;BYDAY=SU", "2026-01-04")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportAssignmentsCSV(&buf, []model.Assignment{
		{ClientID: "C1", TaskID: "T1", WorkerID: "W1", Phase: 2},
	}, calendar))
	assert.Equal(t, "ClientID,TaskID,WorkerID,Phase,PhaseStart\nC1,T1,W1,2,2026-01-11\n", buf.String())
}

func TestExportRowsCSV(t *testing.T) {
	rows := []model.Row{
		{
			"ClientID":         "C1",
			"ClientName":       "Acme, Inc",
			"PriorityLevel":    2.5,
			"RequestedTaskIDs": []any{"T1", "T2"},
			"AttributesJSON":   map[string]any{"tier": "gold"},
			"Region":           "EU",
		},
		{"ClientID": "C2", "PriorityLevel": 1.0, "RequestedTaskIDs": []any{}},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportRowsCSV(&buf, model.EntityClients, rows))

	expected := "ClientID,ClientName,PriorityLevel,RequestedTaskIDs,GroupTag,AttributesJSON,Region\n" +
		"C1,\"Acme, Inc\",2.5,\"T1, T2\",,\"{\"\"tier\"\":\"\"gold\"\"}\",EU\n" +
		"C2,,1,,,,\n"
	assert.Equal(t, expected, buf.String())
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "", formatCell(nil))
	assert.Equal(t, "3", formatCell(3))
	assert.Equal(t, "0.25", formatCell(0.25))
	assert.Equal(t, "true", formatCell(true))
	assert.Equal(t, "1, 2", formatCell([]any{1.0, 2.0}))
	assert.Equal(t, "a, b", formatCell([]string{"a", "b"}))
}
