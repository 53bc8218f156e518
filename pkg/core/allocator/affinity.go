package allocator

import (
	"cmp"
	"slices"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

// IsPlacementValid returns false if any criterion vetoes the placement
func IsPlacementValid(state *AllocationState, placement *Placement, criteria []Criterion) bool {
	for _, criterion := range criteria {
		if !criterion.IsPlacementValid(state, placement) {
			return false
		}
	}
	return true
}

// CalculatePhaseAffinity sums the affinity every criterion assigns to the phase
func CalculatePhaseAffinity(state *AllocationState, task *model.Task, phase int, criteria []Criterion) float64 {
	total := 0.0
	for _, criterion := range criteria {
		total += criterion.PhaseAffinity(state, task, phase)
	}
	return total
}

// CandidatePhases lists the phases a task may be placed in, in the order they are tried.
//
// Without a phase window the phase is fixed: the first PreferredPhases entry, or the
// default phase if there is none. When phase windows apply, the candidates are the
// preferred phases every window allows, followed by the remaining allowed phases in
// ascending order, so a task whose preferences fall outside its window can still be
// placed. That list is then stably reordered by affinity, highest first.
func CandidatePhases(state *AllocationState, task *model.Task, criteria []Criterion) []int {
	base := task.PreferredPhases
	if len(base) == 0 {
		base = []int{state.DefaultPhase}
	}

	windows := state.phaseWindows[task.TaskID]
	if len(windows) == 0 {
		return []int{base[0]}
	}

	allowed := intersectWindows(windows)
	var phases []int
	for _, phase := range base {
		if slices.Contains(allowed, phase) {
			phases = append(phases, phase)
		}
	}
	phases = dedupe(append(phases, allowed...))

	affinity := make(map[int]float64, len(phases))
	for _, phase := range phases {
		affinity[phase] = CalculatePhaseAffinity(state, task, phase, criteria)
	}
	slices.SortStableFunc(phases, func(a, b int) int {
		return cmp.Compare(affinity[b], affinity[a])
	})

	return phases
}

// intersectWindows returns the phases every window allows, ascending
func intersectWindows(windows [][]int) []int {
	allowed := dedupe(windows[0])
	slices.Sort(allowed)
	for _, window := range windows[1:] {
		allowed = slices.DeleteFunc(allowed, func(phase int) bool {
			return !slices.Contains(window, phase)
		})
	}
	return allowed
}

// dedupe drops repeated values, keeping the first occurrence
func dedupe(values []int) []int {
	out := make([]int, 0, len(values))
	for _, v := range values {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
