package domain

import (
	"fmt"
	"time"
)

// AssignmentStatus type for assignment lifecycle
type AssignmentStatus string

const (
	StatusNotStarted AssignmentStatus = "not_started"
	StatusInProgress AssignmentStatus = "in_progress"
	StatusCompleted  AssignmentStatus = "completed"
)

// rank gives each status its position in the forward-only lifecycle.
var rank = map[AssignmentStatus]int{
	StatusNotStarted: 0,
	StatusInProgress: 1,
	StatusCompleted:  2,
}

// Valid reports whether s is a known status.
func (s AssignmentStatus) Valid() bool {
	_, ok := rank[s]
	return ok
}

// Assignment links one Plan to one client.
type Assignment struct {
	ID        string           `bson:"_id" json:"id"`
	PlanID    string           `bson:"planId" json:"planId"`
	CoachID   string           `bson:"coachId" json:"coachId"`   // assigner
	ClientID  string           `bson:"clientId" json:"clientId"` // assignee
	Status    AssignmentStatus `bson:"status" json:"status"`
	// StepIDs are the plan's steps when the assignment was created.
	StepIDs     []string   `bson:"stepIds" json:"stepIds"`
	DueDate     *time.Time `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	Active      bool       `bson:"active" json:"active"`
	WithdrawnAt *time.Time `bson:"withdrawnAt,omitempty" json:"withdrawnAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// IsActive is true while the assignment is neither completed nor withdrawn.
func (a *Assignment) IsActive() bool {
	return a.Status != StatusCompleted && a.WithdrawnAt == nil
}

// RequiredSteps is the part of the step snapshot still present in p. Steps
// added to the plan later are not required, and snapshot steps deleted
// from the plan stop being required.
func (a *Assignment) RequiredSteps(p *Plan) []string {
	present := make(map[string]struct{}, len(p.Steps))
	for _, s := range p.Steps {
		present[s.ID] = struct{}{}
	}
	out := make([]string, 0, len(a.StepIDs))
	for _, id := range a.StepIDs {
		if _, ok := present[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// CountCompleted counts the completed records whose step is in required.
func CountCompleted(records []ProgressRecord, required []string) int {
	want := make(map[string]struct{}, len(required))
	for _, id := range required {
		want[id] = struct{}{}
	}
	n := 0
	for _, r := range records {
		if _, ok := want[r.StepID]; ok && r.Completed {
			delete(want, r.StepID)
			n++
		}
	}
	return n
}

// Transition validates a single status change. Only the immediate successor is
// accepted; staying in the same status is a no-op (ok=false, nil error).
func Transition(from, to AssignmentStatus) (ok bool, err error) {
	if !from.Valid() || !to.Valid() {
		return false, fmt.Errorf("%w: unknown status %q -> %q", ErrInvalidTransition, from, to)
	}
	switch d := rank[to] - rank[from]; {
	case d == 0:
		return false, nil
	case d == 1:
		return true, nil
	case d < 0:
		return false, fmt.Errorf("%w: %s cannot move back to %s", ErrInvalidTransition, from, to)
	default:
		return false, fmt.Errorf("%w: %s cannot skip to %s", ErrInvalidTransition, from, to)
	}
}

// StatusForProgress derives the status an assignment should hold after
// completed of total steps are recorded. It never returns a status behind
// current.
func StatusForProgress(current AssignmentStatus, completed, total int) AssignmentStatus {
	target := current
	switch {
	case total > 0 && completed >= total:
		target = StatusCompleted
	case completed > 0:
		target = StatusInProgress
	}
	if rank[target] < rank[current] {
		return current
	}
	return target
}

// Path lists the intermediate transitions from -> to, each a single forward
// step. It is empty when to is not ahead of from.
func Path(from, to AssignmentStatus) []AssignmentStatus {
	var out []AssignmentStatus
	for s := from; rank[s] < rank[to]; {
		next := successor(s)
		out = append(out, next)
		s = next
	}
	return out
}

func successor(s AssignmentStatus) AssignmentStatus {
	switch s {
	case StatusNotStarted:
		return StatusInProgress
	default:
		return StatusCompleted
	}
}
