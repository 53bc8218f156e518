package sheetsclient

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

// ReadRows reads a tab into rows keyed by the tab's header row.
// Cell values are returned as the sheet displays them, so they still need normalizing.
func (c *Client) ReadRows(ctx context.Context, spreadsheetID, tab string) ([]model.Row, error) {
	values, err := c.GetValues(ctx, spreadsheetID, tab)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tab, err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("tab %s is empty", tab)
	}

	rows := parseRows(values)
	c.logger.Debug("Read rows from sheet", zap.String("tab", tab), zap.Int("count", len(rows)))

	return rows, nil
}

// parseRows turns a header row plus data rows into rows.
// Columns with a blank header are dropped, and so are rows whose cells are all blank.
func parseRows(values [][]interface{}) []model.Row {
	if len(values) == 0 {
		return []model.Row{}
	}

	header := make([]string, len(values[0]))
	for i, cell := range values[0] {
		header[i] = strings.TrimSpace(fmt.Sprint(cell))
	}

	rows := make([]model.Row, 0, len(values)-1)
	for _, record := range values[1:] {
		row := make(model.Row)
		blank := true
		for i, name := range header {
			if name == "" {
				continue
			}
			var cell any = ""
			if i < len(record) && record[i] != nil {
				cell = record[i]
			}
			if s, ok := cell.(string); ok {
				cell = strings.TrimSpace(s)
				if cell != "" {
					blank = false
				}
			} else {
				blank = false
			}
			row[name] = cell
		}
		if !blank {
			rows = append(rows, row)
		}
	}

	return rows
}
