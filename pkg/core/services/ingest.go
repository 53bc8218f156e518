package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/records"
	"github.com/jakechorley/resource-allocator/pkg/metrics"
)

// IngestStore defines the database operations needed to store uploaded rows
type IngestStore interface {
	SaveRows(ctx context.Context, kind model.EntityKind, rows []model.Row) error
}

// IngestResult reports the outcome of an upload
type IngestResult struct {
	Kind     model.EntityKind
	Received int
	Errors   []string
}

// OK reports whether the rows passed validation and were stored
func (r *IngestResult) OK() bool {
	return len(r.Errors) == 0
}

// PrepareRows normalizes rows for an entity kind and validates them.
// The normalized rows are returned even when validation fails.
func PrepareRows(kind model.EntityKind, rows []model.Row) ([]model.Row, []string, error) {
	normalized := records.Normalize(kind, rows)
	errs, err := records.Validate(kind, normalized)
	if err != nil {
		return nil, nil, err
	}
	return normalized, errs, nil
}

// IngestRows normalizes, validates and stores a batch of rows.
// A batch with any validation error is rejected as a whole and nothing is stored;
// the errors are returned in the result rather than as an error.
func IngestRows(
	ctx context.Context,
	store IngestStore,
	logger *zap.Logger,
	m *metrics.Manager,
	kind model.EntityKind,
	rows []model.Row,
) (*IngestResult, error) {
	logger.Debug("Ingesting rows", zap.String("entity", string(kind)), zap.Int("count", len(rows)))

	normalized, errs, err := PrepareRows(kind, rows)
	if err != nil {
		return nil, err
	}

	if len(errs) > 0 {
		logger.Debug("Rows failed validation",
			zap.String("entity", string(kind)),
			zap.Int("error_count", len(errs)))
		m.RecordValidationFailure(string(kind), len(errs))
		return &IngestResult{Kind: kind, Errors: errs}, nil
	}

	if err := store.SaveRows(ctx, kind, normalized); err != nil {
		return nil, fmt.Errorf("failed to save %s rows: %w", kind, err)
	}
	m.RecordRowsIngested(string(kind), len(normalized))

	logger.Debug("Rows stored", zap.String("entity", string(kind)), zap.Int("count", len(normalized)))

	return &IngestResult{Kind: kind, Received: len(normalized), Errors: []string{}}, nil
}
