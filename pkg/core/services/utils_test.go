package services

import (
	"context"
	"slices"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/db"
)

// mockStore implements IngestStore, AllocationStore and RunHistoryStore
type mockStore struct {
	rows        map[model.EntityKind][]model.Row
	runs        []db.AllocationRun
	assignments map[string][]model.Assignment

	saveErr   error
	getErr    error
	insertErr error

	saveCalls int
}

func newMockStore() *mockStore {
	return &mockStore{
		rows:        make(map[model.EntityKind][]model.Row),
		assignments: make(map[string][]model.Assignment),
	}
}

func (m *mockStore) SaveRows(ctx context.Context, kind model.EntityKind, rows []model.Row) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rows[kind] = rows
	return nil
}

func (m *mockStore) GetRows(ctx context.Context, kind model.EntityKind) ([]model.Row, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.rows[kind], nil
}

func (m *mockStore) InsertRun(ctx context.Context, run *db.AllocationRun, assignments []model.Assignment) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.runs = append([]db.AllocationRun{*run}, m.runs...)
	m.assignments[run.ID] = slices.Clone(assignments)
	return nil
}

func (m *mockStore) GetRuns(ctx context.Context) ([]db.AllocationRun, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.runs, nil
}

func (m *mockStore) GetAssignments(ctx context.Context, runID string) ([]model.Assignment, error) {
	assignments, ok := m.assignments[runID]
	if !ok {
		return nil, db.ErrRunNotFound
	}
	return assignments, nil
}

// sampleRows returns string-typed rows as they would arrive from a CSV or sheet
func sampleRows() (clients, workers, tasks []model.Row) {
	clients = []model.Row{
		{"ClientID": "C1", "PriorityLevel": "1", "RequestedTaskIDs": "T1"},
		{"ClientID": "C2", "PriorityLevel": "5", "RequestedTaskIDs": "T9, T1"},
		{"ClientID": "C3", "PriorityLevel": "3", "RequestedTaskIDs": "[T2]"},
	}
	workers = []model.Row{
		{"WorkerID": "W1", "Skills": "sql", "AvailableSlots": "1,2,3", "MaxLoadPerPhase": "2"},
		{"WorkerID": "W2", "Skills": "java, go", "AvailableSlots": "[2]", "MaxLoadPerPhase": "1"},
	}
	tasks = []model.Row{
		{"TaskID": "T1", "Duration": "1", "RequiredSkills": "sql", "PreferredPhases": "2", "MaxConcurrent": "5"},
		{"TaskID": "T2", "Duration": "2", "RequiredSkills": "rust", "PreferredPhases": "", "MaxConcurrent": "1"},
	}
	return clients, workers, tasks
}
