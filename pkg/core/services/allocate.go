package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/pkg/core/allocator"
	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
	"github.com/jakechorley/resource-allocator/pkg/db"
	"github.com/jakechorley/resource-allocator/pkg/metrics"
)

// AllocationStore defines the database operations needed to run an allocation
type AllocationStore interface {
	GetRows(ctx context.Context, kind model.EntityKind) ([]model.Row, error)
	InsertRun(ctx context.Context, run *db.AllocationRun, assignments []model.Assignment) error
}

// InvalidRowsError is returned when rows supplied to an allocation fail validation
type InvalidRowsError struct {
	Kind   model.EntityKind
	Errors []string
}

func (e *InvalidRowsError) Error() string {
	return fmt.Sprintf("%d invalid %s rows: %s", len(e.Errors), e.Kind, strings.Join(e.Errors, "; "))
}

// AllocationRequest describes one allocation run
type AllocationRequest struct {
	Rules           []rules.Rule
	Weights         allocator.Weights
	DefaultPhase    int
	EnforceCapacity bool

	// DryRun computes the allocation without persisting it
	DryRun bool

	// Rows supplied here are used instead of the stored rows for that entity kind
	Clients []model.Row
	Workers []model.Row
	Tasks   []model.Row
}

// AllocationResult contains the outcome of an allocation run
type AllocationResult struct {
	// Run is nil for dry runs
	Run     *db.AllocationRun
	Outcome *allocator.AllocationOutcome
}

// IsConfigError reports whether err was caused by the allocation's rules or weights
// rather than by storage
func IsConfigError(err error) bool {
	var rowsErr *InvalidRowsError
	return errors.Is(err, allocator.ErrInvalidRules) ||
		errors.Is(err, allocator.ErrInvalidWeights) ||
		errors.As(err, &rowsErr)
}

// RunAllocation loads the entity rows, allocates clients to tasks and records the run
func RunAllocation(
	ctx context.Context,
	store AllocationStore,
	logger *zap.Logger,
	m *metrics.Manager,
	req AllocationRequest,
) (*AllocationResult, error) {
	logger.Debug("Starting allocation",
		zap.Int("rule_count", len(req.Rules)),
		zap.Float64("priority_weight", req.Weights.Priority),
		zap.Bool("dry_run", req.DryRun))

	// Step 1: Resolve rows for each entity kind
	supplied := map[model.EntityKind][]model.Row{
		model.EntityClients: req.Clients,
		model.EntityWorkers: req.Workers,
		model.EntityTasks:   req.Tasks,
	}
	resolved := make(map[model.EntityKind][]model.Row, len(supplied))
	for _, kind := range model.AllEntityKinds {
		rows, err := resolveRows(ctx, store, logger, kind, supplied[kind])
		if err != nil {
			if IsConfigError(err) {
				m.RecordAllocationError()
			}
			return nil, err
		}
		resolved[kind] = rows
	}

	// Step 2: Allocate
	started := time.Now()
	outcome, err := allocator.Allocate(allocator.AllocationConfig{
		Clients:         model.ClientsFromRows(resolved[model.EntityClients]),
		Workers:         model.WorkersFromRows(resolved[model.EntityWorkers]),
		Tasks:           model.TasksFromRows(resolved[model.EntityTasks]),
		Rules:           req.Rules,
		Weights:         req.Weights,
		DefaultPhase:    req.DefaultPhase,
		EnforceCapacity: req.EnforceCapacity,
	})
	if err != nil {
		m.RecordAllocationError()
		return nil, fmt.Errorf("allocation rejected: %w", err)
	}
	m.RecordAllocation(len(outcome.Assignments), len(outcome.Unmatched), time.Since(started))

	logger.Debug("Allocation complete",
		zap.Int("assignments", len(outcome.Assignments)),
		zap.Int("unmatched", len(outcome.Unmatched)),
		zap.Int("corun_gaps", len(outcome.CoRunGaps)),
		zap.Bool("success", outcome.Success))

	for _, verr := range outcome.ValidationErrors {
		logger.Warn("Allocation invariant violated",
			zap.String("criterion", verr.CriterionName),
			zap.String("description", verr.Description))
	}

	result := &AllocationResult{Outcome: outcome}
	if req.DryRun {
		logger.Debug("Dry run, not persisting allocation")
		return result, nil
	}

	// Step 3: Persist the run
	ruleSet := req.Rules
	if ruleSet == nil {
		ruleSet = []rules.Rule{}
	}
	ruleData, err := rules.Encode(ruleSet)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rules: %w", err)
	}

	run := &db.AllocationRun{
		ID:              uuid.New().String(),
		CreatedAt:       time.Now().UTC(),
		Rules:           ruleData,
		Weights:         req.Weights,
		ClientCount:     len(resolved[model.EntityClients]),
		AssignmentCount: len(outcome.Assignments),
		UnmatchedCount:  len(outcome.Unmatched),
	}

	if err := store.InsertRun(ctx, run, outcome.Assignments); err != nil {
		return nil, fmt.Errorf("failed to insert allocation run: %w", err)
	}

	logger.Debug("Allocation run stored", zap.String("run_id", run.ID))
	result.Run = run

	return result, nil
}

// resolveRows returns validated supplied rows, or the stored rows when none are supplied
func resolveRows(
	ctx context.Context,
	store AllocationStore,
	logger *zap.Logger,
	kind model.EntityKind,
	supplied []model.Row,
) ([]model.Row, error) {
	if supplied == nil {
		rows, err := store.GetRows(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s rows: %w", kind, err)
		}
		logger.Debug("Loaded stored rows", zap.String("entity", string(kind)), zap.Int("count", len(rows)))
		return rows, nil
	}

	normalized, errs, err := PrepareRows(kind, supplied)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, &InvalidRowsError{Kind: kind, Errors: errs}
	}
	return normalized, nil
}
