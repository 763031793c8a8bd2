package service

import (
	"alcyxob/plan-tracker/internal/auth"
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/lock"
	"alcyxob/plan-tracker/internal/repository"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssignOptions are the optional fields of a new assignment.
type AssignOptions struct {
	DueDate *time.Time
}

// AssignedPlan is a client's view of one active assignment.
type AssignedPlan struct {
	Assignment domain.Assignment `json:"assignment"`
	Plan       domain.Plan       `json:"plan"`
}

type AssignmentService interface {
	// CreateAssignment returns the existing active assignment for the pair
	// instead of failing; created reports which case happened.
	CreateAssignment(ctx context.Context, who domain.Identity, planID, clientID string, opts AssignOptions) (a *domain.Assignment, created bool, err error)
	ListAssignments(ctx context.Context, who domain.Identity, planID string) ([]domain.Assignment, error)
	ListForClient(ctx context.Context, who domain.Identity) ([]AssignedPlan, error)
	GetAssignment(ctx context.Context, who domain.Identity, assignmentID string) (*domain.Assignment, error)
	AdvanceStatus(ctx context.Context, who domain.Identity, assignmentID string, target domain.AssignmentStatus) (*domain.Assignment, error)
	Withdraw(ctx context.Context, who domain.Identity, assignmentID string) (*domain.Assignment, error)
}

// assignmentService implements the AssignmentService interface.
type assignmentService struct {
	plans       repository.PlanRepository
	assignments repository.AssignmentRepository
	locker      lock.Locker
	status      statusMachine
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// NewAssignmentService creates a new instance of assignmentService.
func NewAssignmentService(
	plans repository.PlanRepository,
	assignments repository.AssignmentRepository,
	locker lock.Locker,
	logger *zap.Logger,
) AssignmentService {
	logger = logger.Named("assignments")
	return &assignmentService{
		plans:       plans,
		assignments: assignments,
		locker:      locker,
		status:      statusMachine{assignments: assignments, logger: logger},
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

func (s *assignmentService) CreateAssignment(ctx context.Context, who domain.Identity, planID, clientID string, opts AssignOptions) (*domain.Assignment, bool, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, false, domain.Validationf("client id is required")
	}
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, false, translate("plans.get", err, ErrPlanNotFound)
	}
	if err := auth.RequireOwnership(who, plan.CoachID, "plan"); err != nil {
		return nil, false, err
	}
	if !plan.Published {
		return nil, false, ErrPlanNotPublished
	}

	var (
		result  *domain.Assignment
		created bool
	)
	err = withLock(ctx, s.locker, lock.PairKey(planID, clientID), func() error {
		existing, err := s.findActive(ctx, planID, clientID)
		if err != nil || existing != nil {
			result = existing
			return err
		}

		now := s.now()
		a := &domain.Assignment{
			ID:        s.newID(),
			PlanID:    planID,
			CoachID:   who.UserID,
			ClientID:  clientID,
			Status:    domain.StatusNotStarted,
			StepIDs:   stepIDs(plan.Steps),
			DueDate:   opts.DueDate,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.assignments.Create(ctx, a); err != nil {
			if errors.Is(err, repository.ErrActiveAssignmentExists) {
				// Another instance won the race outside our lock.
				existing, ferr := s.findActive(ctx, planID, clientID)
				if ferr == nil && existing == nil {
					return domain.Dependency("assignments.create", err)
				}
				result = existing
				return ferr
			}
			return domain.Dependency("assignments.create", err)
		}
		result, created = a, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("assignment created",
			zap.String("assignmentId", result.ID),
			zap.String("planId", planID),
			zap.String("clientId", clientID))
	}
	return result, created, nil
}

func stepIDs(steps []domain.Step) []string {
	ids := make([]string, len(steps))
	for i, st := range steps {
		ids[i] = st.ID
	}
	return ids
}

// findActive returns nil, nil when the pair has no active assignment.
func (s *assignmentService) findActive(ctx context.Context, planID, clientID string) (*domain.Assignment, error) {
	a, err := s.assignments.FindActive(ctx, planID, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Dependency("assignments.findActive", err)
	}
	return a, nil
}

// ListAssignments returns every assignment for admins and the caller's own
// for coaches, optionally narrowed to one plan.
func (s *assignmentService) ListAssignments(ctx context.Context, who domain.Identity, planID string) ([]domain.Assignment, error) {
	if err := auth.RequireRole(who, domain.RoleCoach, domain.RoleAdmin); err != nil {
		return nil, err
	}
	filter := repository.AssignmentFilter{PlanID: planID}
	if !who.IsAdmin() {
		filter.CoachID = who.UserID
	}
	list, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, domain.Dependency("assignments.list", err)
	}
	return list, nil
}

// ListForClient returns the caller's active assignments with their plans.
// Assignments whose plan no longer exists are skipped.
func (s *assignmentService) ListForClient(ctx context.Context, who domain.Identity) ([]AssignedPlan, error) {
	list, err := s.assignments.List(ctx, repository.AssignmentFilter{ClientID: who.UserID, ActiveOnly: true})
	if err != nil {
		return nil, domain.Dependency("assignments.list", err)
	}
	out := make([]AssignedPlan, 0, len(list))
	for _, a := range list {
		plan, err := s.plans.GetByID(ctx, a.PlanID)
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("assignment references missing plan", zap.String("assignmentId", a.ID), zap.String("planId", a.PlanID))
			continue
		}
		if err != nil {
			return nil, domain.Dependency("plans.get", err)
		}
		domain.SortSteps(plan.Steps)
		out = append(out, AssignedPlan{Assignment: a, Plan: *plan})
	}
	return out, nil
}

// GetAssignment returns an assignment to one of its parties or an admin.
func (s *assignmentService) GetAssignment(ctx context.Context, who domain.Identity, assignmentID string) (*domain.Assignment, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, translate("assignments.get", err, ErrAssignmentNotFound)
	}
	if err := requireParty(who, a); err != nil {
		return nil, err
	}
	return a, nil
}

// AdvanceStatus applies one explicit forward transition on behalf of the
// owning coach or an admin. Clients move their status by completing steps.
// Requesting the current status is a no-op.
func (s *assignmentService) AdvanceStatus(ctx context.Context, who domain.Identity, assignmentID string, target domain.AssignmentStatus) (*domain.Assignment, error) {
	var result *domain.Assignment
	err := withLock(ctx, s.locker, lock.AssignmentKey(assignmentID), func() error {
		a, err := s.assignments.GetByID(ctx, assignmentID)
		if err != nil {
			return translate("assignments.get", err, ErrAssignmentNotFound)
		}
		if err := auth.RequireOwnership(who, a.CoachID, "assignment"); err != nil {
			return err
		}
		if a.WithdrawnAt != nil {
			return ErrAssignmentWithdrawn
		}
		ok, err := domain.Transition(a.Status, target)
		if err != nil {
			return err
		}
		if !ok {
			result = a
			return nil
		}
		result, err = s.status.advance(ctx, a, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Withdraw deactivates an assignment so the pair can be assigned again.
// Withdrawing twice returns the withdrawn assignment.
func (s *assignmentService) Withdraw(ctx context.Context, who domain.Identity, assignmentID string) (*domain.Assignment, error) {
	var result *domain.Assignment
	err := withLock(ctx, s.locker, lock.AssignmentKey(assignmentID), func() error {
		a, err := s.assignments.GetByID(ctx, assignmentID)
		if err != nil {
			return translate("assignments.get", err, ErrAssignmentNotFound)
		}
		if err := auth.RequireOwnership(who, a.CoachID, "assignment"); err != nil {
			return err
		}
		switch {
		case a.WithdrawnAt != nil:
			result = a
			return nil
		case a.Status == domain.StatusCompleted:
			return ErrAssignmentCompleted
		}
		result, err = s.assignments.Withdraw(ctx, assignmentID)
		if err != nil {
			return translate("assignments.withdraw", err, ErrAssignmentNotFound)
		}
		s.logger.Info("assignment withdrawn", zap.String("assignmentId", assignmentID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// requireParty allows admins, the assigning coach and the assignee.
func requireParty(who domain.Identity, a *domain.Assignment) error {
	if auth.AuthorizeOwnership(who.Role, who.UserID, a.CoachID) || (who.UserID != "" && who.UserID == a.ClientID) {
		return nil
	}
	return auth.RequireOwnership(who, a.CoachID, "assignment")
}
