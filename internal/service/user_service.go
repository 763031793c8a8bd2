package service

import (
	"alcyxob/plan-tracker/internal/auth"
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/repository"
	"context"
	"time"

	"go.uber.org/zap"
)

type UserService interface {
	// EnsureUser records the caller on first sign-in and returns the stored user.
	EnsureUser(ctx context.Context, who domain.Identity) (*domain.User, error)
	// ListClients returns every user that has signed in as a client. Coaches
	// pick assignees from it.
	ListClients(ctx context.Context, who domain.Identity) ([]domain.User, error)
}

type userService struct {
	users  repository.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService creates a new instance of userService.
func NewUserService(users repository.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		users:  users,
		logger: logger.Named("users"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *userService) EnsureUser(ctx context.Context, who domain.Identity) (*domain.User, error) {
	if who.UserID == "" {
		return nil, domain.Validationf("user id is required")
	}
	user, err := s.users.CreateIfAbsent(ctx, &domain.User{
		ID:        who.UserID,
		Role:      who.Role,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, domain.Dependency("users.createIfAbsent", err)
	}
	if user.Role != who.Role {
		s.logger.Debug("stored role differs from token claim",
			zap.String("userId", who.UserID),
			zap.String("stored", string(user.Role)),
			zap.String("claim", string(who.Role)))
	}
	return user, nil
}

func (s *userService) ListClients(ctx context.Context, who domain.Identity) ([]domain.User, error) {
	if err := auth.RequireRole(who, domain.RoleCoach, domain.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.users.ListByRole(ctx, domain.RoleClient)
	if err != nil {
		return nil, domain.Dependency("users.listByRole", err)
	}
	return users, nil
}
