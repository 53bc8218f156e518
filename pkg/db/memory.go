package db

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

// MemoryDB keeps rows and runs for the lifetime of the process
type MemoryDB struct {
	mu          sync.RWMutex
	rows        map[model.EntityKind][]model.Row
	runs        []AllocationRun
	assignments map[string][]model.Assignment
}

// NewMemoryDB creates an empty in-memory store
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		rows:        make(map[model.EntityKind][]model.Row),
		assignments: make(map[string][]model.Assignment),
	}
}

// SaveRows replaces the stored rows of a kind
func (m *MemoryDB) SaveRows(ctx context.Context, kind model.EntityKind, rows []model.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows[kind] = copyRows(rows)
	return nil
}

// GetRows returns the stored rows of a kind, or an empty slice
func (m *MemoryDB) GetRows(ctx context.Context, kind model.EntityKind) ([]model.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return copyRows(m.rows[kind]), nil
}

// InsertRun stores a run and its assignments
func (m *MemoryDB) InsertRun(ctx context.Context, run *AllocationRun, assignments []model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append(m.runs, *run)
	m.assignments[run.ID] = slices.Clone(assignments)
	return nil
}

// GetRuns returns every run, newest first
func (m *MemoryDB) GetRuns(ctx context.Context) ([]AllocationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := slices.Clone(m.runs)
	slices.Reverse(runs)
	return runs, nil
}

// GetAssignments returns the assignments of a run in their original order
func (m *MemoryDB) GetAssignments(ctx context.Context, runID string) ([]model.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	assignments, ok := m.assignments[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return slices.Clone(assignments), nil
}

// Close is a no-op
func (m *MemoryDB) Close() error {
	return nil
}

// copyRows copies the row maps so callers cannot mutate stored state
func copyRows(rows []model.Row) []model.Row {
	out := make([]model.Row, len(rows))
	for i, row := range rows {
		out[i] = maps.Clone(row)
	}
	return out
}
