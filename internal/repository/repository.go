package repository

import (
	"alcyxob/plan-tracker/internal/domain"
	"context"
	"fmt"
)

// Error constants for repository layer. They wrap the domain kinds so a
// service can pass them through untouched.
var (
	ErrNotFound = fmt.Errorf("record %w", domain.ErrNotFound)
	// ErrStatusConflict means a compare-and-set on assignment status lost: the
	// stored status is no longer the expected one.
	ErrStatusConflict = fmt.Errorf("assignment status changed concurrently: %w", domain.ErrInvalidTransition)
	// ErrActiveAssignmentExists is returned by AssignmentRepository.Create when
	// the (plan, client) pair already has an active assignment.
	ErrActiveAssignmentExists = RepositoryError("active assignment already exists")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Repositories bundles one implementation of each repository, so callers can
// swap storage drivers as a unit.
type Repositories struct {
	Users       UserRepository
	Plans       PlanRepository
	Assignments AssignmentRepository
	Progress    ProgressRepository
}

// UserRepository stores users keyed by identity-provider id.
type UserRepository interface {
	// CreateIfAbsent inserts user unless a record with the same id exists, and
	// returns whichever record is stored afterwards.
	CreateIfAbsent(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// ListByRole returns users holding role, oldest first.
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// PlanRepository persists plans with their embedded steps.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) error
	GetByID(ctx context.Context, id string) (*domain.Plan, error)
	// List returns plans in creation order; an empty coachID means all plans.
	List(ctx context.Context, coachID string) ([]domain.Plan, error)
	// Update replaces the mutable fields (title, description, tags, published, steps).
	Update(ctx context.Context, plan *domain.Plan) error
}

// AssignmentFilter narrows AssignmentRepository.List. Zero fields match everything.
type AssignmentFilter struct {
	PlanID     string
	CoachID    string
	ClientID   string
	ActiveOnly bool
}

// AssignmentRepository persists assignments.
type AssignmentRepository interface {
	// Create inserts a new assignment, failing with ErrActiveAssignmentExists
	// when the pair already has an active one.
	Create(ctx context.Context, assignment *domain.Assignment) error
	GetByID(ctx context.Context, id string) (*domain.Assignment, error)
	FindActive(ctx context.Context, planID, clientID string) (*domain.Assignment, error)
	List(ctx context.Context, filter AssignmentFilter) ([]domain.Assignment, error)
	// UpdateStatus moves the assignment from -> to only if it currently holds from.
	UpdateStatus(ctx context.Context, id string, from, to domain.AssignmentStatus) (*domain.Assignment, error)
	// Withdraw deactivates a non-completed assignment.
	Withdraw(ctx context.Context, id string) (*domain.Assignment, error)
}

// ProgressRepository persists progress records.
type ProgressRepository interface {
	// CreateIfAbsent stores rec unless (AssignmentID, StepID) already exists.
	// It returns the stored record and whether this call created it.
	CreateIfAbsent(ctx context.Context, rec *domain.ProgressRecord) (*domain.ProgressRecord, bool, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]domain.ProgressRecord, error)
}
