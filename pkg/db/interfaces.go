package db

import (
	"context"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

// RowStore defines the interface for entity row storage.
// SaveRows replaces every stored row of the given kind.
type RowStore interface {
	SaveRows(ctx context.Context, kind model.EntityKind, rows []model.Row) error
	GetRows(ctx context.Context, kind model.EntityKind) ([]model.Row, error)
}

// RunStore defines the interface for allocation run storage
type RunStore interface {
	InsertRun(ctx context.Context, run *AllocationRun, assignments []model.Assignment) error
	GetRuns(ctx context.Context) ([]AllocationRun, error)
	GetAssignments(ctx context.Context, runID string) ([]model.Assignment, error)
}

// Database defines the interface for all storage operations.
// MemoryDB, postgres.DB and redisstore.Store implement this interface.
type Database interface {
	RowStore
	RunStore
	Close() error
}
