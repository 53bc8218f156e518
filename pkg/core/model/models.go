package model

import (
	"fmt"
	"slices"
)

// EntityKind identifies one of the three tabular record types
type EntityKind string

const (
	EntityClients EntityKind = "clients"
	EntityWorkers EntityKind = "workers"
	EntityTasks   EntityKind = "tasks"
)

// AllEntityKinds lists the entity kinds in their canonical order
var AllEntityKinds = []EntityKind{EntityClients, EntityWorkers, EntityTasks}

// ParseEntityKind converts a path segment or flag value into an EntityKind
func ParseEntityKind(s string) (EntityKind, error) {
	kind := EntityKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("unknown entity %q (expected clients, workers or tasks)", s)
	}
	return kind, nil
}

func (k EntityKind) IsValid() bool {
	return slices.Contains(AllEntityKinds, k)
}

// IDField returns the name of the unique identifier field for the entity kind
func (k EntityKind) IDField() string {
	switch k {
	case EntityClients:
		return "ClientID"
	case EntityWorkers:
		return "WorkerID"
	case EntityTasks:
		return "TaskID"
	}
	return ""
}

// CanonicalFields returns the standard column names for the entity kind, in display order
func CanonicalFields(kind EntityKind) []string {
	switch kind {
	case EntityClients:
		return []string{"ClientID", "ClientName", "PriorityLevel", "RequestedTaskIDs", "GroupTag", "AttributesJSON"}
	case EntityWorkers:
		return []string{"WorkerID", "WorkerName", "Skills", "AvailableSlots", "MaxLoadPerPhase", "WorkerGroup", "QualificationLevel"}
	case EntityTasks:
		return []string{"TaskID", "TaskName", "Category", "Duration", "RequiredSkills", "PreferredPhases", "MaxConcurrent"}
	}
	return nil
}

// Row is a single loosely typed entity row as supplied by the caller.
// Any field may be absent, of the wrong runtime type, or already structured.
type Row map[string]any

// Client requests tasks to be carried out on its behalf
type Client struct {
	ClientID         string   `json:"ClientID"`
	ClientName       string   `json:"ClientName"`
	PriorityLevel    float64  `json:"PriorityLevel"`
	RequestedTaskIDs []string `json:"RequestedTaskIDs"`
	GroupTag         string   `json:"GroupTag,omitempty"`
	AttributesJSON   any      `json:"AttributesJSON,omitempty"`
}

// Worker carries out tasks in the phases it is available for
type Worker struct {
	WorkerID           string   `json:"WorkerID"`
	WorkerName         string   `json:"WorkerName"`
	Skills             []string `json:"Skills"`
	AvailableSlots     []int    `json:"AvailableSlots"`
	MaxLoadPerPhase    int      `json:"MaxLoadPerPhase"`
	WorkerGroup        string   `json:"WorkerGroup,omitempty"`
	QualificationLevel *float64 `json:"QualificationLevel,omitempty"`
}

// HasSkill returns true if the worker lists the given skill tag
func (w *Worker) HasSkill(skill string) bool {
	return slices.Contains(w.Skills, skill)
}

// IsAvailable returns true if the worker lists the phase in AvailableSlots
func (w *Worker) IsAvailable(phase int) bool {
	return slices.Contains(w.AvailableSlots, phase)
}

// Task is a unit of work that can be requested by clients
type Task struct {
	TaskID          string   `json:"TaskID"`
	TaskName        string   `json:"TaskName"`
	Category        string   `json:"Category,omitempty"`
	Duration        int      `json:"Duration"`
	RequiredSkills  []string `json:"RequiredSkills"`
	PreferredPhases []int    `json:"PreferredPhases"`
	MaxConcurrent   int      `json:"MaxConcurrent"`
}

// PrimarySkill returns the first required skill, which is the sole matching criterion.
// The boolean is false when the task lists no required skills.
func (t *Task) PrimarySkill() (string, bool) {
	if len(t.RequiredSkills) == 0 {
		return "", false
	}
	return t.RequiredSkills[0], true
}

// Assignment records that a worker carries out a task for a client in a phase
type Assignment struct {
	ClientID string `json:"clientId"`
	TaskID   string `json:"taskId"`
	WorkerID string `json:"workerId"`
	Phase    int    `json:"phase"`
}
