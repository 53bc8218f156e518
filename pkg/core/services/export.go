package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/phases"
)

// ExportAssignmentsCSV writes assignments as CSV in commit order.
// When calendar is non-nil a PhaseStart column holds each phase's start date.
func ExportAssignmentsCSV(w io.Writer, assignments []model.Assignment, calendar *phases.Calendar) error {
	cw := csv.NewWriter(w)

	header := []string{"ClientID", "TaskID", "WorkerID", "Phase"}
	if calendar != nil {
		header = append(header, "PhaseStart")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, a := range assignments {
		record := []string{a.ClientID, a.TaskID, a.WorkerID, strconv.Itoa(a.Phase)}
		if calendar != nil {
			record = append(record, calendar.Label(a.Phase))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write assignment for %s: %w", a.ClientID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportRowsCSV writes stored rows as CSV. Canonical fields come first in their
// standard order, followed by any other keys in alphabetical order.
func ExportRowsCSV(w io.Writer, kind model.EntityKind, rows []model.Row) error {
	columns := rowColumns(kind, rows)

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		record := make([]string, len(columns))
		for j, column := range columns {
			record[j] = formatCell(row[column])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", kind, i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func rowColumns(kind model.EntityKind, rows []model.Row) []string {
	columns := model.CanonicalFields(kind)
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		seen[c] = true
	}

	var extra []string
	for _, row := range rows {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				extra = append(extra, key)
			}
		}
	}
	slices.Sort(extra)

	return append(slices.Clone(columns), extra...)
}

// formatCell renders a row value the way it would be typed into a spreadsheet:
// lists become comma-separated text and structured values become JSON
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatCell(item)
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
