// Package rules defines the closed set of allocation constraints a caller can
// attach to an allocation run.
//
// The set is sealed: only the four variants declared here implement Rule, and
// every consumer dispatches through Visitor, so adding a variant forces every
// visitor to handle it before the code compiles.
package rules

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind is the wire tag of a rule variant
type Kind string

const (
	KindCoRun           Kind = "coRun"
	KindSlotRestriction Kind = "slotRestriction"
	KindLoadLimit       Kind = "loadLimit"
	KindPhaseWindow     Kind = "phaseWindow"
)

// ErrUnknownRule is returned for rule variants that are not recognised
var ErrUnknownRule = errors.New("unknown rule type")

// Rule is one allocation constraint. Rules are immutable values owned by the caller.
type Rule interface {
	Kind() Kind
	Accept(v Visitor) error
	String() string
	isRule()
}

// Visitor handles each rule variant
type Visitor interface {
	VisitCoRun(rule CoRun) error
	VisitSlotRestriction(rule SlotRestriction) error
	VisitLoadLimit(rule LoadLimit) error
	VisitPhaseWindow(rule PhaseWindow) error
}

// CoRun hints that the listed tasks should be scheduled together
type CoRun struct {
	Tasks []string `json:"tasks" validate:"min=2,unique,dive,required"`
}

// SlotRestriction requires the workers of a group to share at least MinCommonSlots phases
type SlotRestriction struct {
	Group          string `json:"group" validate:"required"`
	MinCommonSlots int    `json:"minCommonSlots" validate:"min=1"`
}

// LoadLimit caps the load a group can take on in any single phase
type LoadLimit struct {
	Group            string `json:"group" validate:"required"`
	MaxSlotsPerPhase int    `json:"maxSlotsPerPhase" validate:"min=1"`
}

// PhaseWindow restricts a task to the listed phases
type PhaseWindow struct {
	TaskID        string `json:"taskId" validate:"required"`
	AllowedPhases []int  `json:"allowedPhases" validate:"min=1"`
}

func (CoRun) Kind() Kind           { return KindCoRun }
func (SlotRestriction) Kind() Kind { return KindSlotRestriction }
func (LoadLimit) Kind() Kind       { return KindLoadLimit }
func (PhaseWindow) Kind() Kind     { return KindPhaseWindow }

func (CoRun) isRule()           {}
func (SlotRestriction) isRule() {}
func (LoadLimit) isRule()       {}
func (PhaseWindow) isRule()     {}

func (r CoRun) Accept(v Visitor) error           { return v.VisitCoRun(r) }
func (r SlotRestriction) Accept(v Visitor) error { return v.VisitSlotRestriction(r) }
func (r LoadLimit) Accept(v Visitor) error       { return v.VisitLoadLimit(r) }
func (r PhaseWindow) Accept(v Visitor) error     { return v.VisitPhaseWindow(r) }

func (r CoRun) String() string {
	return "Co-Run: " + strings.Join(r.Tasks, ", ")
}

func (r SlotRestriction) String() string {
	return fmt.Sprintf("Slot Restriction → Group: %s, Min Slots: %d", r.Group, r.MinCommonSlots)
}

func (r LoadLimit) String() string {
	return fmt.Sprintf("Load Limit → Group: %s, Max Slots: %d", r.Group, r.MaxSlotsPerPhase)
}

func (r PhaseWindow) String() string {
	phases := make([]string, len(r.AllowedPhases))
	for i, phase := range r.AllowedPhases {
		phases[i] = strconv.Itoa(phase)
	}
	return fmt.Sprintf("Phase Window → Task %s, Allowed Phases: %s", r.TaskID, strings.Join(phases, ", "))
}

// Allows reports whether the window admits the phase
func (r PhaseWindow) Allows(phase int) bool {
	return slices.Contains(r.AllowedPhases, phase)
}

// Contains reports whether the co-run set lists the task
func (r CoRun) Contains(taskID string) bool {
	return slices.Contains(r.Tasks, taskID)
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// structValidator checks field constraints of each variant
type structValidator struct{}

func (structValidator) VisitCoRun(rule CoRun) error                     { return validate.Struct(rule) }
func (structValidator) VisitSlotRestriction(rule SlotRestriction) error { return validate.Struct(rule) }
func (structValidator) VisitLoadLimit(rule LoadLimit) error             { return validate.Struct(rule) }
func (structValidator) VisitPhaseWindow(rule PhaseWindow) error         { return validate.Struct(rule) }

// Validate checks a single rule. A nil rule is reported as an unknown rule.
func Validate(rule Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: nil rule", ErrUnknownRule)
	}
	if err := rule.Accept(structValidator{}); err != nil {
		return fmt.Errorf("invalid %s rule: %w", rule.Kind(), err)
	}
	return nil
}

// ValidateAll checks every rule and reports the first failure with its index
func ValidateAll(ruleSet []Rule) error {
	for i, rule := range ruleSet {
		if err := Validate(rule); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	return nil
}

// Describe returns a one-line summary of a rule for listings
func Describe(rule Rule) string {
	if rule == nil {
		return "Unknown rule"
	}
	return rule.String()
}
