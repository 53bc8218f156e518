package db

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jakechorley/resource-allocator/pkg/core/allocator"
)

// ErrRunNotFound is returned when an allocation run ID is unknown
var ErrRunNotFound = errors.New("allocation run not found")

// AllocationRun records one persisted allocation run
type AllocationRun struct {
	ID              string            `json:"id"`
	CreatedAt       time.Time         `json:"createdAt"`
	Rules           json.RawMessage   `json:"rules"`
	Weights         allocator.Weights `json:"weights"`
	ClientCount     int               `json:"clientCount"`
	AssignmentCount int               `json:"assignmentCount"`
	UnmatchedCount  int               `json:"unmatchedCount"`
}
