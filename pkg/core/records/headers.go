package records

import (
	"strings"
	"unicode"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

// headerAliases maps folded header spellings onto canonical field names, per entity.
// Folding lower-cases and drops everything that is not a letter or digit.
var headerAliases = map[model.EntityKind]map[string]string{
	model.EntityClients: {
		"id":             "ClientID",
		"client":         "ClientID",
		"name":           "ClientName",
		"priority":       "PriorityLevel",
		"requestedtasks": "RequestedTaskIDs",
		"tasks":          "RequestedTaskIDs",
		"taskids":        "RequestedTaskIDs",
		"group":          "GroupTag",
		"clientgroup":    "GroupTag",
		"attributes":     "AttributesJSON",
	},
	model.EntityWorkers: {
		"id":            "WorkerID",
		"worker":        "WorkerID",
		"name":          "WorkerName",
		"empname":       "WorkerName",
		"employeename":  "WorkerName",
		"skill":         "Skills",
		"slots":         "AvailableSlots",
		"availableslot": "AvailableSlots",
		"availability":  "AvailableSlots",
		"maxload":       "MaxLoadPerPhase",
		"group":         "WorkerGroup",
		"qualification": "QualificationLevel",
	},
	model.EntityTasks: {
		"id":          "TaskID",
		"task":        "TaskID",
		"name":        "TaskName",
		"skills":      "RequiredSkills",
		"skill":       "RequiredSkills",
		"phases":      "PreferredPhases",
		"phase":       "PreferredPhases",
		"concurrency": "MaxConcurrent",
		"maxparallel": "MaxConcurrent",
	},
}

func foldHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SuggestHeaderMapping proposes a rename from the given headers to canonical field names.
// Only recognised headers that differ from their canonical spelling are included.
func SuggestHeaderMapping(kind model.EntityKind, headers []string) map[string]string {
	canonical := make(map[string]string)
	for _, field := range model.CanonicalFields(kind) {
		canonical[foldHeader(field)] = field
	}
	for alias, field := range headerAliases[kind] {
		canonical[foldHeader(alias)] = field
	}

	mapping := make(map[string]string)
	for _, header := range headers {
		field, ok := canonical[foldHeader(header)]
		if ok && field != header {
			mapping[header] = field
		}
	}
	return mapping
}

// ApplyHeaderMapping returns copies of the rows with keys renamed through the mapping.
// Keys absent from the mapping are kept as they are.
func ApplyHeaderMapping(rows []model.Row, mapping map[string]string) []model.Row {
	out := make([]model.Row, len(rows))
	for i, row := range rows {
		renamed := make(model.Row, len(row))
		for key, value := range row {
			if mapped, ok := mapping[key]; ok && mapped != "" {
				key = mapped
			}
			renamed[key] = value
		}
		out[i] = renamed
	}
	return out
}
