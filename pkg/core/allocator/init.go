package allocator

import (
	"errors"
	"fmt"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
)

// ErrInvalidRules is returned when a rule fails validation
var ErrInvalidRules = errors.New("invalid rules")

// InitAllocation validates the configuration and builds the initial allocation state
func InitAllocation(config AllocationConfig) (*Allocator, error) {
	if err := config.Weights.Validate(); err != nil {
		return nil, err
	}
	if err := rules.ValidateAll(config.Rules); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}

	defaultPhase := config.DefaultPhase
	if defaultPhase == 0 {
		defaultPhase = 1
	}

	state := &AllocationState{
		Clients:         RankClients(config.Clients, config.Weights),
		Workers:         make([]*model.Worker, len(config.Workers)),
		Tasks:           make(map[string]*model.Task, len(config.Tasks)),
		DefaultPhase:    defaultPhase,
		Weights:         config.Weights,
		GroupLoads:      NewLoadLedger(),
		WorkerLoads:     NewLoadLedger(),
		TaskLoads:       NewLoadLedger(),
		Assignments:     []model.Assignment{},
		phaseWindows:    make(map[string][][]int),
		assignedClients: make(map[string]bool),
		taskPhases:      make(map[string][]int),
	}

	for i := range config.Workers {
		state.Workers[i] = &config.Workers[i]
	}
	for i := range config.Tasks {
		task := &config.Tasks[i]
		if _, exists := state.Tasks[task.TaskID]; !exists {
			state.Tasks[task.TaskID] = task
		}
	}

	compiler := &criteriaCompiler{state: state}
	for _, rule := range config.Rules {
		if err := rule.Accept(compiler); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
		}
	}

	criteria := compiler.criteria
	if config.EnforceCapacity {
		criteria = append(criteria, NewWorkerCapacityCriterion(), NewTaskConcurrencyCriterion())
	}

	strategy := config.Strategy
	if strategy == nil {
		strategy = FirstMatchStrategy{}
	}

	return &Allocator{
		criteria: criteria,
		strategy: strategy,
		state:    state,
	}, nil
}

// criteriaCompiler turns each rule into the criterion that enforces it
type criteriaCompiler struct {
	state    *AllocationState
	criteria []Criterion
}

func (c *criteriaCompiler) VisitCoRun(rule rules.CoRun) error {
	c.criteria = append(c.criteria, NewCoRunCriterion(rule))
	return nil
}

func (c *criteriaCompiler) VisitSlotRestriction(rule rules.SlotRestriction) error {
	c.criteria = append(c.criteria, NewSlotRestrictionCriterion(rule, c.state.Workers))
	return nil
}

func (c *criteriaCompiler) VisitLoadLimit(rule rules.LoadLimit) error {
	c.criteria = append(c.criteria, NewLoadLimitCriterion(rule))
	return nil
}

func (c *criteriaCompiler) VisitPhaseWindow(rule rules.PhaseWindow) error {
	c.state.phaseWindows[rule.TaskID] = append(c.state.phaseWindows[rule.TaskID], rule.AllowedPhases)
	c.criteria = append(c.criteria, NewPhaseWindowCriterion(rule))
	return nil
}
