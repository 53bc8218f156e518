// Package redisstore keeps entity rows and allocation runs in Redis.
//
// Rows of each entity kind live under one JSON string key. Runs are pushed
// onto a list so the newest run is always at the head, and the assignments
// of each run live under their own key.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/db"
)

// DefaultPrefix namespaces every key the store writes
const DefaultPrefix = "allocator:"

var _ db.Database = (*Store)(nil)

// Store implements db.Database on top of a Redis client
type Store struct {
	rdb    redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// New connects to the Redis server at redisURL and checks it responds
func New(ctx context.Context, redisURL string, logger *zap.Logger) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(rdb, DefaultPrefix, logger), nil
}

// NewWithClient wraps an existing client
func NewWithClient(rdb redis.UniversalClient, prefix string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{rdb: rdb, prefix: prefix, logger: logger}
}

func (s *Store) rowsKey(kind model.EntityKind) string {
	return s.prefix + "rows:" + string(kind)
}

func (s *Store) runsKey() string {
	return s.prefix + "runs"
}

func (s *Store) assignmentsKey(runID string) string {
	return s.prefix + "run:" + runID + ":assignments"
}

// SaveRows replaces the stored rows of a kind
func (s *Store) SaveRows(ctx context.Context, kind model.EntityKind, rows []model.Row) error {
	if rows == nil {
		rows = []model.Row{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode %s rows: %w", kind, err)
	}
	if err := s.rdb.Set(ctx, s.rowsKey(kind), data, 0).Err(); err != nil {
		return fmt.Errorf("save %s rows: %w", kind, err)
	}
	s.logger.Debug("saved rows", zap.String("entity", string(kind)), zap.Int("count", len(rows)))
	return nil
}

// GetRows returns the stored rows of a kind, or an empty slice
func (s *Store) GetRows(ctx context.Context, kind model.EntityKind) ([]model.Row, error) {
	data, err := s.rdb.Get(ctx, s.rowsKey(kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []model.Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s rows: %w", kind, err)
	}
	return decodeRows(data)
}

// InsertRun stores a run and its assignments in one transaction
func (s *Store) InsertRun(ctx context.Context, run *db.AllocationRun, assignments []model.Assignment) error {
	runData, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	assignmentData, err := json.Marshal(assignments)
	if err != nil {
		return fmt.Errorf("encode assignments: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.assignmentsKey(run.ID), assignmentData, 0)
		pipe.LPush(ctx, s.runsKey(), runData)
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	s.logger.Debug("inserted run", zap.String("run_id", run.ID), zap.Int("assignments", len(assignments)))
	return nil
}

// GetRuns returns every run, newest first
func (s *Store) GetRuns(ctx context.Context) ([]db.AllocationRun, error) {
	values, err := s.rdb.LRange(ctx, s.runsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return decodeRuns(values)
}

// GetAssignments returns the assignments of a run in commit order
func (s *Store) GetAssignments(ctx context.Context, runID string) ([]model.Assignment, error) {
	data, err := s.rdb.Get(ctx, s.assignmentsKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, db.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assignments for run %s: %w", runID, err)
	}

	var assignments []model.Assignment
	if err := json.Unmarshal(data, &assignments); err != nil {
		return nil, fmt.Errorf("decode assignments for run %s: %w", runID, err)
	}
	return assignments, nil
}

// Close shuts down the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func decodeRows(data []byte) ([]model.Row, error) {
	rows := []model.Row{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

func decodeRuns(values []string) ([]db.AllocationRun, error) {
	runs := make([]db.AllocationRun, 0, len(values))
	for i, value := range values {
		var run db.AllocationRun
		if err := json.Unmarshal([]byte(value), &run); err != nil {
			return nil, fmt.Errorf("decode run %d: %w", i, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
