// Package state implements the shared run state for a forked agent run and
// the reducers that reconcile divergent branch updates at join points.
//
// The model is optimistic and lock-free: every branch works on a private
// copy of the shared snapshot, and all copies are reconciled by pure
// reducers when the branches rejoin. Conflicting todo updates are resolved
// by a total order over statuses (a completed todo never regresses), file
// writes are resolved by fold order (last branch wins), and the
// conversation log is append-only.
package state

import "fmt"

// --- Status enum ---

// Status is the lifecycle state of a todo. The three values form a total
// order (pending < in_progress < completed) used to resolve conflicting
// concurrent updates to the same todo: the higher status always wins.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// statusPriority encodes the total order. Higher wins a merge.
var statusPriority = map[Status]int{
	StatusPending:    1,
	StatusInProgress: 2,
	StatusCompleted:  3,
}

// Priority returns the status's rank in the total order, or 0 for an
// unknown status.
func (s Status) Priority() int {
	return statusPriority[s]
}

// ValidateStatus returns an error if the status is not recognized.
func ValidateStatus(s Status) error {
	if _, ok := statusPriority[s]; !ok {
		return &ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("%q is not one of: pending, in_progress, completed", s),
		}
	}
	return nil
}

// --- Todo record ---

// Todo is a keyed unit of tracked work. Content is the identity: two todos
// are the same todo iff their Content strings are equal, exact and
// case-sensitive. Content is immutable after creation; only Status
// transitions. The empty string is a valid (if unusual) identity.
type Todo struct {
	Content string `json:"content"`
	Status  Status `json:"status"`
}

// Validate returns an error if the todo violates the record contract.
func (t Todo) Validate() error {
	return ValidateStatus(t.Status)
}

// --- Validation errors ---

// ValidationError reports a record that violates the state contract, e.g.
// a status outside the three-value enum. It is raised before any merging
// occurs — a reducer never produces a partial result.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
