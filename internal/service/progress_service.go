package service

import (
	"alcyxob/plan-tracker/internal/auth"
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/lock"
	"alcyxob/plan-tracker/internal/repository"
	"context"
	"time"

	"go.uber.org/zap"
)

// ClientProgress is one row of a coach's per-plan progress view.
type ClientProgress struct {
	AssignmentID   string                  `json:"assignmentId"`
	ClientID       string                  `json:"clientId"`
	Status         domain.AssignmentStatus `json:"status"`
	Active         bool                    `json:"active"`
	CompletedCount int                     `json:"completedCount"`
	TotalCount     int                     `json:"totalCount"`
}

type ProgressService interface {
	// MarkStepComplete records the caller's completion of a step. Repeats
	// return the first record unchanged.
	MarkStepComplete(ctx context.Context, who domain.Identity, assignmentID, stepID string) (*domain.ProgressRecord, error)
	GetProgressSummary(ctx context.Context, who domain.Identity, assignmentID string) (*domain.ProgressSummary, error)
	ListRecords(ctx context.Context, who domain.Identity, assignmentID string) ([]domain.ProgressRecord, error)
	PlanProgress(ctx context.Context, who domain.Identity, planID string) ([]ClientProgress, error)
}

// progressService implements the ProgressService interface.
type progressService struct {
	plans       repository.PlanRepository
	assignments repository.AssignmentRepository
	progress    repository.ProgressRepository
	locker      lock.Locker
	status      statusMachine
	logger      *zap.Logger
	now         func() time.Time
}

// NewProgressService creates a new instance of progressService.
func NewProgressService(
	plans repository.PlanRepository,
	assignments repository.AssignmentRepository,
	progress repository.ProgressRepository,
	locker lock.Locker,
	logger *zap.Logger,
) ProgressService {
	logger = logger.Named("progress")
	return &progressService{
		plans:       plans,
		assignments: assignments,
		progress:    progress,
		locker:      locker,
		status:      statusMachine{assignments: assignments, logger: logger},
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *progressService) MarkStepComplete(ctx context.Context, who domain.Identity, assignmentID, stepID string) (*domain.ProgressRecord, error) {
	// Completing a step is the worker's own action.
	if err := auth.RequireRole(who, domain.RoleClient); err != nil {
		return nil, err
	}

	var record *domain.ProgressRecord
	err := withLock(ctx, s.locker, lock.AssignmentKey(assignmentID), func() error {
		a, err := s.assignments.GetByID(ctx, assignmentID)
		if err != nil {
			return translate("assignments.get", err, ErrAssignmentNotFound)
		}
		if a.ClientID != who.UserID {
			return ErrAssignmentNotFound
		}
		if a.WithdrawnAt != nil {
			return ErrAssignmentWithdrawn
		}
		plan, err := s.plans.GetByID(ctx, a.PlanID)
		if err != nil {
			return translate("plans.get", err, ErrPlanNotFound)
		}
		if step, _ := plan.StepByID(stepID); step == nil {
			return ErrStepNotFound
		}
		if !contains(a.RequiredSteps(plan), stepID) {
			return ErrStepNotAssigned
		}

		rec, created, err := s.progress.CreateIfAbsent(ctx, &domain.ProgressRecord{
			AssignmentID: assignmentID,
			StepID:       stepID,
			ClientID:     who.UserID,
			Completed:    true,
			CompletedAt:  s.now(),
		})
		if err != nil {
			return domain.Dependency("progress.create", err)
		}
		record = rec
		if created {
			s.logger.Info("step completed", zap.String("assignmentId", assignmentID), zap.String("stepId", stepID))
		}
		// Reconcile on repeats too: a retry after a failed status write heals it.
		return s.reconcile(ctx, a, plan)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// reconcile derives the status implied by the recorded progress and applies it.
func (s *progressService) reconcile(ctx context.Context, a *domain.Assignment, plan *domain.Plan) error {
	sum, err := s.summarize(ctx, a, plan)
	if err != nil {
		return err
	}
	target := domain.StatusForProgress(a.Status, sum.CompletedCount, sum.TotalCount)
	if target == a.Status {
		return nil
	}
	_, err = s.status.advance(ctx, a, target)
	return err
}

func (s *progressService) GetProgressSummary(ctx context.Context, who domain.Identity, assignmentID string) (*domain.ProgressSummary, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, translate("assignments.get", err, ErrAssignmentNotFound)
	}
	if err := requireParty(who, a); err != nil {
		return nil, err
	}
	plan, err := s.plans.GetByID(ctx, a.PlanID)
	if err != nil {
		return nil, translate("plans.get", err, ErrPlanNotFound)
	}
	return s.summarize(ctx, a, plan)
}

// summarize counts progress against the assignment's step snapshot as it
// stands in the current plan.
func (s *progressService) summarize(ctx context.Context, a *domain.Assignment, plan *domain.Plan) (*domain.ProgressSummary, error) {
	records, err := s.progress.ListByAssignment(ctx, a.ID)
	if err != nil {
		return nil, domain.Dependency("progress.list", err)
	}
	required := a.RequiredSteps(plan)
	return &domain.ProgressSummary{
		AssignmentID:   a.ID,
		Status:         a.Status,
		CompletedCount: domain.CountCompleted(records, required),
		TotalCount:     len(required),
	}, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *progressService) ListRecords(ctx context.Context, who domain.Identity, assignmentID string) ([]domain.ProgressRecord, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, translate("assignments.get", err, ErrAssignmentNotFound)
	}
	if err := requireParty(who, a); err != nil {
		return nil, err
	}
	recs, err := s.progress.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, domain.Dependency("progress.list", err)
	}
	return recs, nil
}

// PlanProgress summarizes every assignment of a plan for its owner or an admin.
func (s *progressService) PlanProgress(ctx context.Context, who domain.Identity, planID string) ([]ClientProgress, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, translate("plans.get", err, ErrPlanNotFound)
	}
	if err := auth.RequireOwnership(who, plan.CoachID, "plan"); err != nil {
		return nil, err
	}
	list, err := s.assignments.List(ctx, repository.AssignmentFilter{PlanID: planID})
	if err != nil {
		return nil, domain.Dependency("assignments.list", err)
	}
	out := make([]ClientProgress, 0, len(list))
	for i := range list {
		sum, err := s.summarize(ctx, &list[i], plan)
		if err != nil {
			return nil, err
		}
		out = append(out, ClientProgress{
			AssignmentID:   list[i].ID,
			ClientID:       list[i].ClientID,
			Status:         list[i].Status,
			Active:         list[i].Active,
			CompletedCount: sum.CompletedCount,
			TotalCount:     sum.TotalCount,
		})
	}
	return out, nil
}
