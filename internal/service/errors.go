package service

import (
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/lock"
	"alcyxob/plan-tracker/internal/repository"
	"context"
	"errors"
	"fmt"
)

// --- Error Definitions ---
var (
	ErrPlanNotFound        = fmt.Errorf("plan %w", domain.ErrNotFound)
	ErrStepNotFound        = fmt.Errorf("step %w", domain.ErrNotFound)
	ErrStepNotAssigned     = fmt.Errorf("step is not part of this assignment: %w", domain.ErrNotFound)
	ErrAssignmentNotFound  = fmt.Errorf("assignment %w", domain.ErrNotFound)
	ErrPlanNotPublished    = fmt.Errorf("%w: plan is a draft and cannot be assigned", domain.ErrValidation)
	ErrAssignmentWithdrawn = fmt.Errorf("%w: assignment has been withdrawn", domain.ErrInvalidTransition)
	ErrAssignmentCompleted = fmt.Errorf("%w: assignment is already completed", domain.ErrInvalidTransition)
)

// translate maps a repository error to the service error for a missing
// resource, and wraps anything else as a dependency failure.
func translate(op string, err error, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return domain.Dependency(op, err)
}

// withLock runs fn while holding key.
func withLock(ctx context.Context, l lock.Locker, key string, fn func() error) error {
	unlock, err := l.Lock(ctx, key)
	if err != nil {
		return domain.Dependency("lock "+key, err)
	}
	defer unlock()
	return fn()
}
