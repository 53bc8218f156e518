package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/metrics"
)

func TestIngestRows_Success(t *testing.T) {
	store := newMockStore()
	m := metrics.NewManager()
	_, workers, _ := sampleRows()

	result, err := IngestRows(context.Background(), store, zap.NewNop(), m, model.EntityWorkers, workers)
	require.NoError(t, err)

	assert.True(t, result.OK())
	assert.Equal(t, 2, result.Received)
	assert.Empty(t, result.Errors)

	stored := store.rows[model.EntityWorkers]
	require.Len(t, stored, 2)
	assert.Equal(t, []any{"java", "go"}, stored[1]["Skills"])
	assert.Equal(t, 2.0, stored[0]["MaxLoadPerPhase"])

	expected := `
# HELP allocator_rows_ingested_total Total number of entity rows accepted and stored
# TYPE allocator_rows_ingested_total counter
allocator_rows_ingested_total{entity="workers"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "allocator_rows_ingested_total"))
}

func TestIngestRows_ValidationFailureStoresNothing(t *testing.T) {
	store := newMockStore()
	rows := []model.Row{
		{"ClientName": "no id", "PriorityLevel": 1, "RequestedTaskIDs": []any{"T1"}},
		{"ClientID": "C1", "PriorityLevel": "high", "RequestedTaskIDs": []any{}},
	}

	result, err := IngestRows(context.Background(), store, zap.NewNop(), nil, model.EntityClients, rows)
	require.NoError(t, err)

	assert.False(t, result.OK())
	assert.Equal(t, 0, result.Received)
	assert.Equal(t, []string{
		"Row 0: missing ClientID",
		"Row 1: PriorityLevel must be a number",
	}, result.Errors)
	assert.Equal(t, 0, store.saveCalls)
}

func TestIngestRows_StoreError(t *testing.T) {
	store := newMockStore()
	store.saveErr = errors.New("disk full")
	_, _, tasks := sampleRows()

	_, err := IngestRows(context.Background(), store, zap.NewNop(), nil, model.EntityTasks, tasks)
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
}

func TestIngestRows_UnknownEntity(t *testing.T) {
	_, err := IngestRows(context.Background(), newMockStore(), zap.NewNop(), nil, model.EntityKind("shifts"), nil)
	assert.Error(t, err)
}

func TestPrepareRows(t *testing.T) {
	normalized, errs, err := PrepareRows(model.EntityTasks, []model.Row{
		{"TaskID": "T1", "Duration": "0", "RequiredSkills": "sql", "PreferredPhases": "1,2", "MaxConcurrent": "1"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Row 0: Duration must be ≥1"}, errs)
	require.Len(t, normalized, 1)
	assert.Equal(t, []any{1.0, 2.0}, normalized[0]["PreferredPhases"])
}
