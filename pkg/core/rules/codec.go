package rules

import (
	"encoding/json"
	"fmt"
)

// Set is an ordered rule list with a tagged JSON encoding:
//
//	[{"type":"coRun","tasks":["T1","T2"]},{"type":"loadLimit","group":"A","maxSlotsPerPhase":2}]
type Set []Rule

func (r CoRun) MarshalJSON() ([]byte, error) {
	type plain CoRun
	return json.Marshal(struct {
		Type Kind `json:"type"`
		plain
	}{KindCoRun, plain(r)})
}

func (r SlotRestriction) MarshalJSON() ([]byte, error) {
	type plain SlotRestriction
	return json.Marshal(struct {
		Type Kind `json:"type"`
		plain
	}{KindSlotRestriction, plain(r)})
}

func (r LoadLimit) MarshalJSON() ([]byte, error) {
	type plain LoadLimit
	return json.Marshal(struct {
		Type Kind `json:"type"`
		plain
	}{KindLoadLimit, plain(r)})
}

func (r PhaseWindow) MarshalJSON() ([]byte, error) {
	type plain PhaseWindow
	return json.Marshal(struct {
		Type Kind `json:"type"`
		plain
	}{KindPhaseWindow, plain(r)})
}

// UnmarshalJSON decodes a tagged rule list. Unknown tags fail with ErrUnknownRule.
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("rules must be a JSON array: %w", err)
	}

	decoded := make(Set, 0, len(raw))
	for i, item := range raw {
		rule, err := decodeRule(item)
		if err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
		decoded = append(decoded, rule)
	}

	*s = decoded
	return nil
}

// Decode parses a JSON rule list
func Decode(data []byte) ([]Rule, error) {
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	return set, nil
}

// Encode renders a rule list in the tagged JSON format
func Encode(ruleSet []Rule) ([]byte, error) {
	return json.MarshalIndent(Set(ruleSet), "", "  ")
}

func decodeRule(data json.RawMessage) (Rule, error) {
	var envelope struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse rule: %w", err)
	}

	var (
		rule Rule
		err  error
	)
	switch envelope.Type {
	case KindCoRun:
		var r CoRun
		err = json.Unmarshal(data, &r)
		rule = r
	case KindSlotRestriction:
		var r SlotRestriction
		err = json.Unmarshal(data, &r)
		rule = r
	case KindLoadLimit:
		var r LoadLimit
		err = json.Unmarshal(data, &r)
		rule = r
	case KindPhaseWindow:
		var r PhaseWindow
		err = json.Unmarshal(data, &r)
		rule = r
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownRule, envelope.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse %s rule: %w", envelope.Type, err)
	}
	return rule, nil
}
