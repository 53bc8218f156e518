package allocator

import (
	"cmp"
	"slices"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

// placementLoad is the load a single assignment adds to every group it touches
const placementLoad = 1

// AllocationState represents the state of an allocation run while it is in progress.
// It is created per call and never shared between runs.
type AllocationState struct {
	// Clients in processing order (highest score first)
	Clients []*ClientEntry

	// Workers in input order. Worker search always walks this slice front to back.
	Workers []*model.Worker

	// Tasks keyed by TaskID. The first occurrence of a duplicated ID wins.
	Tasks map[string]*model.Task

	// DefaultPhase is used for tasks without preferred phases
	DefaultPhase int

	// Weights that produced the client ordering
	Weights Weights

	// GroupLoads accumulates load per (group, phase) for every group a placement touches
	GroupLoads *LoadLedger

	// WorkerLoads accumulates load per (worker, phase)
	WorkerLoads *LoadLedger

	// TaskLoads accumulates load per (task, phase)
	TaskLoads *LoadLedger

	// Assignments committed so far, in commit order
	Assignments []model.Assignment

	// phaseWindows holds the phase windows declared per task
	phaseWindows map[string][][]int

	// assignedClients tracks which clients already hold an assignment
	assignedClients map[string]bool

	// taskPhases tracks the phases each task has been committed to
	taskPhases map[string][]int
}

// ClientEntry wraps a client with its position in the input and its ranking score
type ClientEntry struct {
	Client *model.Client
	Index  int
	Score  float64
}

// Placement is a candidate (client, task, worker, phase) tuple
type Placement struct {
	Client *model.Client
	Task   *model.Task
	Worker *model.Worker
	Phase  int
}

// Groups returns the distinct non-empty groups the placement counts against:
// the worker's group and the client's group tag
func (p *Placement) Groups() []string {
	groups := make([]string, 0, 2)
	if p.Worker != nil && p.Worker.WorkerGroup != "" {
		groups = append(groups, p.Worker.WorkerGroup)
	}
	if p.Client != nil && p.Client.GroupTag != "" && !slices.Contains(groups, p.Client.GroupTag) {
		groups = append(groups, p.Client.GroupTag)
	}
	return groups
}

// Touches returns true if the placement counts against the group
func (p *Placement) Touches(group string) bool {
	return slices.Contains(p.Groups(), group)
}

// Task returns the task with the given ID, or nil
func (s *AllocationState) Task(taskID string) *model.Task {
	return s.Tasks[taskID]
}

// IsAssigned returns true if the client already holds an assignment
func (s *AllocationState) IsAssigned(clientID string) bool {
	return s.assignedClients[clientID]
}

// TaskPhases returns the phases a task has been committed to so far
func (s *AllocationState) TaskPhases(taskID string) []int {
	return s.taskPhases[taskID]
}

// Commit records a placement as an assignment and updates every ledger
func (s *AllocationState) Commit(p *Placement) model.Assignment {
	assignment := model.Assignment{
		ClientID: p.Client.ClientID,
		TaskID:   p.Task.TaskID,
		WorkerID: p.Worker.WorkerID,
		Phase:    p.Phase,
	}
	s.Assignments = append(s.Assignments, assignment)
	s.assignedClients[assignment.ClientID] = true

	for _, group := range p.Groups() {
		s.GroupLoads.Add(group, p.Phase, placementLoad)
	}
	s.WorkerLoads.Add(assignment.WorkerID, p.Phase, placementLoad)
	s.TaskLoads.Add(assignment.TaskID, p.Phase, placementLoad)

	if !slices.Contains(s.taskPhases[assignment.TaskID], p.Phase) {
		s.taskPhases[assignment.TaskID] = append(s.taskPhases[assignment.TaskID], p.Phase)
	}

	return assignment
}

// LoadKey identifies an accumulator slot
type LoadKey struct {
	Key   string
	Phase int
}

// LoadEntry is one non-zero accumulator slot
type LoadEntry struct {
	Key   string `json:"key"`
	Phase int    `json:"phase"`
	Load  int    `json:"load"`
}

// LoadLedger accumulates load per (key, phase).
// It is owned by a single allocation run and is not safe for concurrent use.
type LoadLedger struct {
	loads map[LoadKey]int
}

// NewLoadLedger creates an empty ledger
func NewLoadLedger() *LoadLedger {
	return &LoadLedger{loads: make(map[LoadKey]int)}
}

// Load returns the accumulated load for (key, phase)
func (l *LoadLedger) Load(key string, phase int) int {
	return l.loads[LoadKey{Key: key, Phase: phase}]
}

// Add accumulates load for (key, phase)
func (l *LoadLedger) Add(key string, phase int, amount int) {
	l.loads[LoadKey{Key: key, Phase: phase}] += amount
}

// Entries returns every non-zero slot ordered by key then phase
func (l *LoadLedger) Entries() []LoadEntry {
	entries := make([]LoadEntry, 0, len(l.loads))
	for k, load := range l.loads {
		if load == 0 {
			continue
		}
		entries = append(entries, LoadEntry{Key: k.Key, Phase: k.Phase, Load: load})
	}
	slices.SortFunc(entries, func(a, b LoadEntry) int {
		if c := cmp.Compare(a.Key, b.Key); c != 0 {
			return c
		}
		return cmp.Compare(a.Phase, b.Phase)
	})
	return entries
}
