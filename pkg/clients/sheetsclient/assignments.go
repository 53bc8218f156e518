package sheetsclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/phases"
)

// PublishAssignments writes assignments to a tab, creating it if needed.
// An existing tab is overwritten.
func (c *Client) PublishAssignments(
	ctx context.Context,
	spreadsheetID string,
	tab string,
	assignments []model.Assignment,
	calendar *phases.Calendar,
) error {
	exists, err := c.HasSheet(ctx, spreadsheetID, tab)
	if err != nil {
		return err
	}

	if !exists {
		c.logger.Debug("Creating tab", zap.String("tab", tab))
		if _, err := c.CreateSheet(ctx, spreadsheetID, tab); err != nil {
			return fmt.Errorf("failed to create tab: %w", err)
		}
	}

	if err := c.ReplaceValues(ctx, spreadsheetID, tab, assignmentValues(assignments, calendar)); err != nil {
		return fmt.Errorf("failed to publish assignments: %w", err)
	}

	c.logger.Debug("Published assignments", zap.String("tab", tab), zap.Int("count", len(assignments)))
	return nil
}

// assignmentValues lays assignments out as a header row followed by one row per assignment
func assignmentValues(assignments []model.Assignment, calendar *phases.Calendar) [][]interface{} {
	header := []interface{}{"ClientID", "TaskID", "WorkerID", "Phase"}
	if calendar != nil {
		header = append(header, "Phase start")
	}

	values := make([][]interface{}, 0, len(assignments)+1)
	values = append(values, header)
	for _, a := range assignments {
		row := []interface{}{a.ClientID, a.TaskID, a.WorkerID, a.Phase}
		if calendar != nil {
			row = append(row, calendar.Label(a.Phase))
		}
		values = append(values, row)
	}
	return values
}
