package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/db"
)

// RunHistoryStore defines the database operations needed to inspect past runs
type RunHistoryStore interface {
	GetRuns(ctx context.Context) ([]db.AllocationRun, error)
	GetAssignments(ctx context.Context, runID string) ([]model.Assignment, error)
}

// ListRuns returns the stored allocation runs, newest first, limited to count when count > 0
func ListRuns(ctx context.Context, store RunHistoryStore, logger *zap.Logger, count int) ([]db.AllocationRun, error) {
	runs, err := store.GetRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allocation runs: %w", err)
	}

	logger.Debug("Fetched allocation runs", zap.Int("count", len(runs)))

	if count > 0 && len(runs) > count {
		runs = runs[:count]
	}
	return runs, nil
}

// RunAssignments returns the assignments of a run. Unknown runs return db.ErrRunNotFound.
func RunAssignments(ctx context.Context, store RunHistoryStore, logger *zap.Logger, runID string) ([]model.Assignment, error) {
	logger.Debug("Fetching run assignments", zap.String("run_id", runID))

	assignments, err := store.GetAssignments(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignments for run %s: %w", runID, err)
	}
	return assignments, nil
}
