package model

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// IsNumber reports whether v holds a numeric runtime value (not a numeric string)
func IsNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	}
	return false
}

// IsList reports whether v holds an array-valued field
func IsList(v any) bool {
	if v == nil {
		return false
	}
	kind := reflect.TypeOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

// AsFloat coerces numbers and numeric strings to float64
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// AsInt coerces integral numbers and numeric strings to int
func AsInt(v any) (int, bool) {
	f, ok := AsFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// AsCount coerces a finite number to a whole count, rounding down.
// A positive value below one counts as one, so a fractional cap never becomes unlimited.
func AsCount(v any) (int, bool) {
	f, ok := AsFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > 0 && f < 1 {
		return 1, true
	}
	return int(math.Floor(f)), true
}

// IDString stringifies an identifier field. Absent and nil values become the empty string.
func IDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	}
	if f, ok := AsFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// AsString returns the string form of an optional text field
func AsString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return IDString(v)
}

// AsStringList converts an array-valued field into a list of trimmed, non-empty strings
func AsStringList(v any) []string {
	if !IsList(v) {
		return nil
	}
	rv := reflect.ValueOf(v)
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		s := IDString(rv.Index(i).Interface())
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AsIntList converts an array-valued field into phase numbers, skipping non-integral elements
func AsIntList(v any) []int {
	if !IsList(v) {
		return nil
	}
	rv := reflect.ValueOf(v)
	out := make([]int, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if n, ok := AsInt(rv.Index(i).Interface()); ok {
			out = append(out, n)
		}
	}
	return out
}

// ClientFromRow builds a typed Client from a validated row
func ClientFromRow(row Row) Client {
	priority, _ := AsFloat(row["PriorityLevel"])
	return Client{
		ClientID:         IDString(row["ClientID"]),
		ClientName:       AsString(row["ClientName"]),
		PriorityLevel:    priority,
		RequestedTaskIDs: AsStringList(row["RequestedTaskIDs"]),
		GroupTag:         AsString(row["GroupTag"]),
		AttributesJSON:   row["AttributesJSON"],
	}
}

// WorkerFromRow builds a typed Worker from a validated row
func WorkerFromRow(row Row) Worker {
	maxLoad, _ := AsCount(row["MaxLoadPerPhase"])
	worker := Worker{
		WorkerID:        IDString(row["WorkerID"]),
		WorkerName:      AsString(row["WorkerName"]),
		Skills:          AsStringList(row["Skills"]),
		AvailableSlots:  AsIntList(row["AvailableSlots"]),
		MaxLoadPerPhase: maxLoad,
		WorkerGroup:     AsString(row["WorkerGroup"]),
	}
	if level, ok := AsFloat(row["QualificationLevel"]); ok {
		worker.QualificationLevel = &level
	}
	return worker
}

// TaskFromRow builds a typed Task from a validated row
func TaskFromRow(row Row) Task {
	duration, _ := AsCount(row["Duration"])
	maxConcurrent, _ := AsCount(row["MaxConcurrent"])
	return Task{
		TaskID:          IDString(row["TaskID"]),
		TaskName:        AsString(row["TaskName"]),
		Category:        AsString(row["Category"]),
		Duration:        duration,
		RequiredSkills:  AsStringList(row["RequiredSkills"]),
		PreferredPhases: AsIntList(row["PreferredPhases"]),
		MaxConcurrent:   maxConcurrent,
	}
}

func ClientsFromRows(rows []Row) []Client {
	clients := make([]Client, len(rows))
	for i, row := range rows {
		clients[i] = ClientFromRow(row)
	}
	return clients
}

func WorkersFromRows(rows []Row) []Worker {
	workers := make([]Worker, len(rows))
	for i, row := range rows {
		workers[i] = WorkerFromRow(row)
	}
	return workers
}

func TasksFromRows(rows []Row) []Task {
	tasks := make([]Task, len(rows))
	for i, row := range rows {
		tasks[i] = TaskFromRow(row)
	}
	return tasks
}
