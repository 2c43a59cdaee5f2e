package plan

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Status represents the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
	StatusCancelled  Status = "cancelled"
)

// statusOrder is the definition order of the enum. Legacy documents stored
// statuses as their numeric position, so the index here is also the wire
// format accepted as a fallback on read.
var statusOrder = []Status{
	StatusTodo,
	StatusInProgress,
	StatusCompleted,
	StatusBlocked,
	StatusCancelled,
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	for _, known := range statusOrder {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the status represents work that no longer
// needs attention (completed or cancelled).
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus converts caller input into a Status. It accepts the symbolic
// name in any case, with spaces or dashes instead of underscores.
func ParseStatus(input string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	s := Status(normalized)
	if s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q (expected one of: todo, in_progress, completed, blocked, cancelled)", input)
}

// MarshalJSON serializes the status as its symbolic name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts the symbolic name, a numeric enum position (legacy
// documents), or a quoted number. Unrecognized values fall back to the
// first-defined value, StatusTodo.
func (s *Status) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if parsed, perr := ParseStatus(asString); perr == nil {
			*s = parsed
			return nil
		}
		if idx, ierr := strconv.Atoi(asString); ierr == nil {
			*s = statusFromIndex(idx)
			return nil
		}
		*s = StatusTodo
		return nil
	}

	var asNumber int
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*s = statusFromIndex(asNumber)
		return nil
	}

	*s = StatusTodo
	return nil
}

func statusFromIndex(idx int) Status {
	if idx >= 0 && idx < len(statusOrder) {
		return statusOrder[idx]
	}
	return StatusTodo
}
