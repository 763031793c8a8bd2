package service

import (
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/repository"
	"context"

	"go.uber.org/zap"
)

// statusMachine is the single place assignment status is written. Callers
// hold the assignment lock.
type statusMachine struct {
	assignments repository.AssignmentRepository
	logger      *zap.Logger
}

// advance walks a forward to target one transition at a time. Each write is a
// compare-and-set, so a concurrent writer can never make status regress.
func (m statusMachine) advance(ctx context.Context, a *domain.Assignment, target domain.AssignmentStatus) (*domain.Assignment, error) {
	current := a
	for _, next := range domain.Path(current.Status, target) {
		if _, err := domain.Transition(current.Status, next); err != nil {
			return nil, err
		}
		updated, err := m.assignments.UpdateStatus(ctx, current.ID, current.Status, next)
		if err != nil {
			return nil, translate("assignments.updateStatus", err, ErrAssignmentNotFound)
		}
		m.logger.Info("assignment status advanced",
			zap.String("assignmentId", current.ID),
			zap.String("from", string(current.Status)),
			zap.String("to", string(next)))
		current = updated
	}
	return current, nil
}
