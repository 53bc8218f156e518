package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/db"
)

// InsertRun inserts a run and its assignments inside one transaction
func (d *DB) InsertRun(ctx context.Context, run *db.AllocationRun, assignments []model.Assignment) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rules := string(run.Rules)
	if rules == "" {
		rules = "[]"
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO allocation_run (
			id, created_at, rules, priority_weight, fairness_weight, fulfillment_weight,
			client_count, assignment_count, unmatched_count
		)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8, $9)
	`, run.ID, run.CreatedAt.UTC(), rules,
		run.Weights.Priority, run.Weights.Fairness, run.Weights.Fulfillment,
		run.ClientCount, run.AssignmentCount, run.UnmatchedCount)
	if err != nil {
		return fmt.Errorf("failed to insert allocation run: %w", err)
	}

	batch := &pgx.Batch{}
	for i, a := range assignments {
		batch.Queue(`
			INSERT INTO run_assignment (run_id, position, client_id, task_id, worker_id, phase)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, run.ID, i, a.ClientID, a.TaskID, a.WorkerID, a.Phase)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert assignments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRuns retrieves all allocation runs, newest first
func (d *DB) GetRuns(ctx context.Context) ([]db.AllocationRun, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, created_at, rules, priority_weight, fairness_weight, fulfillment_weight,
			client_count, assignment_count, unmatched_count
		FROM allocation_run
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation runs: %w", err)
	}
	defer rows.Close()

	runs := []db.AllocationRun{}
	for rows.Next() {
		var r db.AllocationRun
		var rules []byte
		if err := rows.Scan(
			&r.ID, &r.CreatedAt, &rules,
			&r.Weights.Priority, &r.Weights.Fairness, &r.Weights.Fulfillment,
			&r.ClientCount, &r.AssignmentCount, &r.UnmatchedCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan allocation run: %w", err)
		}
		r.Rules = rules
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation runs: %w", err)
	}

	return runs, nil
}

// GetAssignments retrieves the assignments of a run in commit order
func (d *DB) GetAssignments(ctx context.Context, runID string) ([]model.Assignment, error) {
	var exists bool
	if err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM allocation_run WHERE id = $1)`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up allocation run: %w", err)
	}
	if !exists {
		return nil, db.ErrRunNotFound
	}

	rows, err := d.pool.Query(ctx, `
		SELECT client_id, task_id, worker_id, phase
		FROM run_assignment
		WHERE run_id = $1
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	assignments := []model.Assignment{}
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ClientID, &a.TaskID, &a.WorkerID, &a.Phase); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}
