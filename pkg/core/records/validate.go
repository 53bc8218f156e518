// Package records checks the structural integrity of raw entity rows before
// they are accepted for allocation, and prepares loosely typed rows for checking.
package records

import (
	"fmt"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

// fieldCheck is a single per-row structural rule
type fieldCheck struct {
	field  string
	valid  func(v any) bool
	reason string
}

var clientChecks = []fieldCheck{
	{field: "PriorityLevel", valid: model.IsNumber, reason: "PriorityLevel must be a number"},
	{field: "RequestedTaskIDs", valid: model.IsList, reason: "RequestedTaskIDs must be an array"},
}

var workerChecks = []fieldCheck{
	{field: "Skills", valid: model.IsList, reason: "Skills must be an array"},
	{field: "AvailableSlots", valid: model.IsList, reason: "AvailableSlots must be an array"},
	{field: "MaxLoadPerPhase", valid: model.IsNumber, reason: "MaxLoadPerPhase must be a number"},
}

var taskChecks = []fieldCheck{
	{field: "Duration", valid: isPositiveDuration, reason: "Duration must be ≥1"},
	{field: "RequiredSkills", valid: model.IsList, reason: "RequiredSkills must be an array"},
	{field: "PreferredPhases", valid: model.IsList, reason: "PreferredPhases must be an array"},
	{field: "MaxConcurrent", valid: model.IsNumber, reason: "MaxConcurrent must be a number"},
}

func isPositiveDuration(v any) bool {
	if !model.IsNumber(v) {
		return false
	}
	f, _ := model.AsFloat(v)
	return f >= 1
}

// ValidateClients returns one "Row <i>: <reason>" line per violation, row-index-major.
// An empty result means the batch is fully valid.
func ValidateClients(rows []model.Row) []string {
	return validateRows(rows, model.EntityClients.IDField(), clientChecks)
}

// ValidateWorkers returns one "Row <i>: <reason>" line per violation, row-index-major
func ValidateWorkers(rows []model.Row) []string {
	return validateRows(rows, model.EntityWorkers.IDField(), workerChecks)
}

// ValidateTasks returns one "Row <i>: <reason>" line per violation, row-index-major
func ValidateTasks(rows []model.Row) []string {
	return validateRows(rows, model.EntityTasks.IDField(), taskChecks)
}

// Validate dispatches to the validator for the given entity kind
func Validate(kind model.EntityKind, rows []model.Row) ([]string, error) {
	switch kind {
	case model.EntityClients:
		return ValidateClients(rows), nil
	case model.EntityWorkers:
		return ValidateWorkers(rows), nil
	case model.EntityTasks:
		return ValidateTasks(rows), nil
	}
	return nil, fmt.Errorf("unknown entity %q", kind)
}

// validateRows checks every row against the identifier rules and the field checks.
// The first occurrence of an identifier wins; rows with a missing identifier are
// not tracked for later duplicate checks.
func validateRows(rows []model.Row, idField string, checks []fieldCheck) []string {
	errors := []string{}
	seen := make(map[string]bool)

	for i, row := range rows {
		id := model.IDString(row[idField])
		switch {
		case id == "":
			errors = append(errors, fmt.Sprintf("Row %d: missing %s", i, idField))
		case seen[id]:
			errors = append(errors, fmt.Sprintf("Row %d: duplicate %s %s", i, idField, id))
		default:
			seen[id] = true
		}

		for _, check := range checks {
			if !check.valid(row[check.field]) {
				errors = append(errors, fmt.Sprintf("Row %d: %s", i, check.reason))
			}
		}
	}

	return errors
}
