package service

import (
	"alcyxob/plan-tracker/internal/auth"
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/lock"
	"alcyxob/plan-tracker/internal/repository"
	"alcyxob/plan-tracker/internal/storage"
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlanInput carries the fields of a new plan.
type PlanInput struct {
	Title       string
	Description string
	Tags        []string
	Published   bool
}

// PlanPatch is a partial plan update; nil fields are retained.
type PlanPatch struct {
	Title       *string
	Description *string
	Tags        *[]string
	Published   *bool
}

// MediaUpload is a step media file handed over by the transport layer.
type MediaUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type PlanService interface {
	CreatePlan(ctx context.Context, coachID string, in PlanInput) (*domain.Plan, error)
	UpdatePlan(ctx context.Context, who domain.Identity, planID string, patch PlanPatch) (*domain.Plan, error)
	ListPlans(ctx context.Context, who domain.Identity) ([]domain.Plan, error)
	GetPlan(ctx context.Context, planID string) (*domain.Plan, error)

	AddStep(ctx context.Context, who domain.Identity, planID string, in StepInput) (*domain.Step, error)
	UpdateStep(ctx context.Context, who domain.Identity, planID, stepID string, patch StepPatch) (*domain.Step, error)
	DeleteStep(ctx context.Context, who domain.Identity, planID, stepID string) error
	AttachStepMedia(ctx context.Context, who domain.Identity, planID, stepID string, file MediaUpload) (*domain.Step, error)
}

// planService implements the PlanService interface.
type planService struct {
	plans    repository.PlanRepository
	files    storage.FileStorage
	locker   lock.Locker
	ordering *StepOrdering
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewPlanService creates a new instance of planService.
func NewPlanService(plans repository.PlanRepository, files storage.FileStorage, locker lock.Locker, logger *zap.Logger) PlanService {
	return &planService{
		plans:    plans,
		files:    files,
		locker:   locker,
		ordering: NewStepOrdering(),
		logger:   logger.Named("plans"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// CreatePlan stores a new draft (unless in.Published) owned by coachID.
// Admins create on a coach's behalf by passing that coach's id.
func (s *planService) CreatePlan(ctx context.Context, coachID string, in PlanInput) (*domain.Plan, error) {
	if strings.TrimSpace(coachID) == "" {
		return nil, domain.Validationf("coach id is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.Validationf("plan title is required")
	}
	now := s.now()
	plan := &domain.Plan{
		ID:          s.newID(),
		CoachID:     coachID,
		Title:       title,
		Description: in.Description,
		Tags:        domain.NormalizeTags(in.Tags),
		Published:   in.Published,
		Steps:       []domain.Step{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, domain.Dependency("plans.create", err)
	}
	s.logger.Info("plan created", zap.String("planId", plan.ID), zap.String("coachId", coachID))
	return plan, nil
}

// UpdatePlan merges patch into the plan after an ownership check.
func (s *planService) UpdatePlan(ctx context.Context, who domain.Identity, planID string, patch PlanPatch) (*domain.Plan, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, domain.Validationf("plan title cannot be empty")
	}
	var updated *domain.Plan
	err := s.mutate(ctx, who, planID, func(plan *domain.Plan) error {
		if patch.Title != nil {
			plan.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			plan.Description = *patch.Description
		}
		if patch.Tags != nil {
			plan.Tags = domain.NormalizeTags(*patch.Tags)
		}
		if patch.Published != nil {
			plan.Published = *patch.Published
		}
		updated = plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListPlans returns every plan for admins and owned plans for anyone else,
// in creation order.
func (s *planService) ListPlans(ctx context.Context, who domain.Identity) ([]domain.Plan, error) {
	coachID := who.UserID
	if who.IsAdmin() {
		coachID = ""
	}
	plans, err := s.plans.List(ctx, coachID)
	if err != nil {
		return nil, domain.Dependency("plans.list", err)
	}
	return plans, nil
}

// GetPlan retrieves a plan with its steps in order.
func (s *planService) GetPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, translate("plans.get", err, ErrPlanNotFound)
	}
	domain.SortSteps(plan.Steps)
	return plan, nil
}

// AddStep appends a step to the plan.
func (s *planService) AddStep(ctx context.Context, who domain.Identity, planID string, in StepInput) (*domain.Step, error) {
	var created domain.Step
	err := s.mutate(ctx, who, planID, func(plan *domain.Plan) error {
		steps, step, err := s.ordering.Add(plan.Steps, in)
		if err != nil {
			return err
		}
		plan.Steps, created = steps, step
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateStep merges patch into one step.
func (s *planService) UpdateStep(ctx context.Context, who domain.Identity, planID, stepID string, patch StepPatch) (*domain.Step, error) {
	var updated domain.Step
	err := s.mutate(ctx, who, planID, func(plan *domain.Plan) error {
		steps, step, err := s.ordering.Update(plan.Steps, stepID, patch)
		if err != nil {
			return err
		}
		plan.Steps, updated = steps, step
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteStep removes one step without renumbering the others.
func (s *planService) DeleteStep(ctx context.Context, who domain.Identity, planID, stepID string) error {
	return s.mutate(ctx, who, planID, func(plan *domain.Plan) error {
		steps, err := s.ordering.Delete(plan.Steps, stepID)
		if err != nil {
			return err
		}
		plan.Steps = steps
		return nil
	})
}

// AttachStepMedia uploads file to object storage and records the returned
// URL on the step. A failed upload leaves the step unchanged; a failed plan
// write after a successful upload leaves an orphaned object and is surfaced
// for retry.
func (s *planService) AttachStepMedia(ctx context.Context, who domain.Identity, planID, stepID string, file MediaUpload) (*domain.Step, error) {
	mediaType, err := mediaTypeOf(file.ContentType)
	if err != nil {
		return nil, err
	}
	var updated domain.Step
	err = s.mutate(ctx, who, planID, func(plan *domain.Plan) error {
		step, idx := plan.StepByID(stepID)
		if step == nil {
			return ErrStepNotFound
		}
		key := storage.StepMediaKey(planID, stepID, s.now(), file.FileName)
		url, err := s.files.Upload(ctx, key, file.ContentType, file.Body, file.Size)
		if err != nil {
			return domain.Dependency("storage.upload", err)
		}
		plan.Steps[idx].MediaURL = &url
		plan.Steps[idx].MediaType = mediaType
		updated = plan.Steps[idx]
		s.logger.Info("step media uploaded", zap.String("planId", planID), zap.String("stepId", stepID), zap.String("key", key))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// mutate is the shared read-check-modify-write path for plan content: it
// serializes on the plan, checks ownership before fn runs and writes only if
// fn succeeds.
func (s *planService) mutate(ctx context.Context, who domain.Identity, planID string, fn func(*domain.Plan) error) error {
	return withLock(ctx, s.locker, lock.PlanKey(planID), func() error {
		plan, err := s.plans.GetByID(ctx, planID)
		if err != nil {
			return translate("plans.get", err, ErrPlanNotFound)
		}
		if err := auth.RequireOwnership(who, plan.CoachID, "plan"); err != nil {
			return err
		}
		if err := fn(plan); err != nil {
			return err
		}
		if err := s.plans.Update(ctx, plan); err != nil {
			return translate("plans.update", err, ErrPlanNotFound)
		}
		return nil
	})
}

func mediaTypeOf(contentType string) (domain.MediaType, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return domain.MediaImage, nil
	case strings.HasPrefix(ct, "video/"):
		return domain.MediaVideo, nil
	}
	return "", domain.Validationf("unsupported media content type %q", contentType)
}
