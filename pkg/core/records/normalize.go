package records

import (
	"encoding/json"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

// fieldShape describes how a raw column should be coerced before validation
type fieldShape int

const (
	shapeStringList fieldShape = iota
	shapeNumberList
	shapeNumber
	shapeJSON
)

var entityShapes = map[model.EntityKind]map[string]fieldShape{
	model.EntityClients: {
		"RequestedTaskIDs": shapeStringList,
		"PriorityLevel":    shapeNumber,
		"AttributesJSON":   shapeJSON,
	},
	model.EntityWorkers: {
		"Skills":             shapeStringList,
		"AvailableSlots":     shapeNumberList,
		"MaxLoadPerPhase":    shapeNumber,
		"QualificationLevel": shapeNumber,
	},
	model.EntityTasks: {
		"RequiredSkills":  shapeStringList,
		"PreferredPhases": shapeNumberList,
		"Duration":        shapeNumber,
		"MaxConcurrent":   shapeNumber,
	},
}

// Normalize coerces string-encoded cells into the shapes the validators expect:
// comma-separated and bracketed lists become arrays, numeric strings become numbers,
// and AttributesJSON strings holding JSON become structured values.
// Values that cannot be coerced are left untouched so validation can report them.
// The input rows are not modified.
func Normalize(kind model.EntityKind, rows []model.Row) []model.Row {
	shapes := entityShapes[kind]
	out := make([]model.Row, len(rows))

	for i, row := range rows {
		normalized := make(model.Row, len(row))
		maps.Copy(normalized, row)

		for field, shape := range shapes {
			value, ok := normalized[field]
			if !ok {
				continue
			}
			text, isString := value.(string)
			if !isString {
				continue
			}

			switch shape {
			case shapeStringList:
				normalized[field] = splitStringList(text)
			case shapeNumberList:
				normalized[field] = splitNumberList(text)
			case shapeNumber:
				normalized[field] = parseNumber(text)
			case shapeJSON:
				normalized[field] = parseJSON(text)
			}
		}

		out[i] = normalized
	}

	return out
}

// splitStringList handles "a, b", "[a,b]" and `["a","b"]`
func splitStringList(text string) []any {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		var decoded []any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}
		trimmed = strings.Trim(trimmed, "[]")
	}

	items := []any{}
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

// splitNumberList handles "1,2", "[1, 2]"; unparsable tokens are kept as strings
func splitNumberList(text string) []any {
	items := []any{}
	for _, part := range splitStringList(text) {
		if s, ok := part.(string); ok {
			if f, ok := parseFinite(s); ok {
				items = append(items, f)
				continue
			}
		}
		items = append(items, part)
	}
	return items
}

// parseNumber returns a float64 for numeric text, nil for blank text, and the text otherwise
func parseNumber(text string) any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if f, ok := parseFinite(trimmed); ok {
		return f
	}
	return text
}

// parseFinite parses numeric text, rejecting NaN and infinities
func parseFinite(text string) (float64, bool) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseJSON(text string) any {
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return text
	}
	return decoded
}
