package allocator

// UnmatchedReason explains why a client received no assignment.
// Reasons are ordered by how far the search got; the furthest one is reported.
type UnmatchedReason int

const (
	ReasonNoRequestedTasks UnmatchedReason = iota
	ReasonTaskNotFound
	ReasonNoRequiredSkill
	ReasonNoSkilledWorker
	ReasonConstraintsBlocked
)

func (r UnmatchedReason) String() string {
	switch r {
	case ReasonNoRequestedTasks:
		return "no requested tasks"
	case ReasonTaskNotFound:
		return "requested tasks not found"
	case ReasonNoRequiredSkill:
		return "requested tasks list no required skill"
	case ReasonNoSkilledWorker:
		return "no worker has the required skill"
	case ReasonConstraintsBlocked:
		return "every candidate placement violates a constraint"
	default:
		return "unknown"
	}
}

func (r UnmatchedReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Strategy chooses the placement for one client.
// It returns nil and the reason when no placement is possible.
type Strategy interface {
	Name() string
	SelectPlacement(state *AllocationState, entry *ClientEntry, criteria []Criterion) (*Placement, UnmatchedReason)
}

// FirstMatchStrategy takes the first valid placement found.
//
// Requested tasks are tried in order. For each task the candidate phases are
// tried in order, and for each phase the workers holding the task's primary
// skill are tried in input order. The first placement no criterion vetoes wins.
type FirstMatchStrategy struct{}

func (FirstMatchStrategy) Name() string {
	return "firstMatch"
}

func (FirstMatchStrategy) SelectPlacement(state *AllocationState, entry *ClientEntry, criteria []Criterion) (*Placement, UnmatchedReason) {
	reason := ReasonNoRequestedTasks

	for _, taskID := range entry.Client.RequestedTaskIDs {
		task := state.Task(taskID)
		if task == nil {
			reason = max(reason, ReasonTaskNotFound)
			continue
		}

		skill, ok := task.PrimarySkill()
		if !ok {
			reason = max(reason, ReasonNoRequiredSkill)
			continue
		}

		reason = max(reason, ReasonNoSkilledWorker)
		phases := CandidatePhases(state, task, criteria)
		if len(phases) == 0 {
			// Conflicting phase windows
			reason = max(reason, ReasonConstraintsBlocked)
			continue
		}

		for _, phase := range phases {
			for _, worker := range state.Workers {
				if !worker.HasSkill(skill) {
					continue
				}
				reason = max(reason, ReasonConstraintsBlocked)

				placement := &Placement{
					Client: entry.Client,
					Task:   task,
					Worker: worker,
					Phase:  phase,
				}
				if IsPlacementValid(state, placement, criteria) {
					return placement, reason
				}
			}
		}
	}

	return nil, reason
}
