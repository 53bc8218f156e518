// Package phases maps abstract phase numbers onto calendar dates.
//
// Phase n starts at the n-th occurrence of a recurrence rule, so a rule of
// FREQ=WEEKLY;BYDAY=MO starting on a Monday makes phase 1 that Monday, phase 2
// the following Monday, and so on.
package phases

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrPhaseOutOfRange is returned for phases below 1 or past the end of the rule
var ErrPhaseOutOfRange = errors.New("phase out of range")

const dateLayout = "2006-01-02"

// Calendar resolves phase numbers to start times
type Calendar struct {
	rule *rrule.RRule
	text string
}

// NewCalendar parses an RFC 5545 RRULE (without DTSTART) anchored at start
func NewCalendar(ruleText string, start time.Time) (*Calendar, error) {
	rule, err := rrule.StrToRRule(ruleText)
	if err != nil {
		return nil, fmt.Errorf("invalid phase rrule: %w", err)
	}
	rule.DTStart(start)

	return &Calendar{rule: rule, text: ruleText}, nil
}

// ParseCalendar is NewCalendar with a YYYY-MM-DD start date in UTC
func ParseCalendar(ruleText, startDate string) (*Calendar, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid phase start date %q: %w", startDate, err)
	}
	return NewCalendar(ruleText, start)
}

// Rule returns the recurrence rule text the calendar was built from
func (c *Calendar) Rule() string {
	return c.text
}

// PhaseStart returns the start time of the given phase
func (c *Calendar) PhaseStart(phase int) (time.Time, error) {
	if phase < 1 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrPhaseOutOfRange, phase)
	}

	next := c.rule.Iterator()
	for n := 1; ; n++ {
		occurrence, ok := next()
		if !ok {
			return time.Time{}, fmt.Errorf("%w: rule ends before phase %d", ErrPhaseOutOfRange, phase)
		}
		if n == phase {
			return occurrence, nil
		}
	}
}

// Label returns the phase start as YYYY-MM-DD, or an empty string if the phase
// has no start date
func (c *Calendar) Label(phase int) string {
	start, err := c.PhaseStart(phase)
	if err != nil {
		return ""
	}
	return start.Format(dateLayout)
}
