// Package memory implements the repository interfaces over process-local maps.
// It backs the test suites and the `memory` database driver for local runs.
package memory

import (
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/repository"
	"context"
	"sort"
	"sync"
	"time"
)

// Store holds all collections behind a single mutex. Each method is atomic.
type Store struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	plans       map[string]domain.Plan
	planOrder   []string
	assignments map[string]domain.Assignment
	assignOrder []string
	progress    map[string]domain.ProgressRecord
	progOrder   []string
	now         func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		plans:       make(map[string]domain.Plan),
		assignments: make(map[string]domain.Assignment),
		progress:    make(map[string]domain.ProgressRecord),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() repository.UserRepository             { return userRepo{s} }
func (s *Store) Plans() repository.PlanRepository             { return planRepo{s} }
func (s *Store) Assignments() repository.AssignmentRepository { return assignmentRepo{s} }
func (s *Store) Progress() repository.ProgressRepository      { return progressRepo{s} }

// Repositories returns the store's repositories as a bundle.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Users:       s.Users(),
		Plans:       s.Plans(),
		Assignments: s.Assignments(),
		Progress:    s.Progress(),
	}
}

// --- users ---

type userRepo struct{ s *Store }

func (r userRepo) CreateIfAbsent(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.users[user.ID]; ok {
		return &existing, nil
	}
	r.s.users[user.ID] = *user
	u := *user
	return &u, nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.User{}
	for _, u := range r.s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- plans ---

type planRepo struct{ s *Store }

func (r planRepo) Create(_ context.Context, plan *domain.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.plans[plan.ID] = clonePlan(*plan)
	r.s.planOrder = append(r.s.planOrder, plan.ID)
	return nil
}

func (r planRepo) GetByID(_ context.Context, id string) (*domain.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = clonePlan(p)
	return &p, nil
}

func (r planRepo) List(_ context.Context, coachID string) ([]domain.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Plan{}
	for _, id := range r.s.planOrder {
		p := r.s.plans[id]
		if coachID != "" && p.CoachID != coachID {
			continue
		}
		out = append(out, clonePlan(p))
	}
	return out, nil
}

func (r planRepo) Update(_ context.Context, plan *domain.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.plans[plan.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Title = plan.Title
	stored.Description = plan.Description
	stored.Tags = plan.Tags
	stored.Published = plan.Published
	stored.Steps = plan.Steps
	stored.UpdatedAt = r.s.now()
	r.s.plans[plan.ID] = clonePlan(stored)
	plan.UpdatedAt = stored.UpdatedAt
	return nil
}

func clonePlan(p domain.Plan) domain.Plan {
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	p.Steps = append([]domain.Step{}, p.Steps...)
	return p
}

// --- assignments ---

type assignmentRepo struct{ s *Store }

func (r assignmentRepo) Create(_ context.Context, a *domain.Assignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range r.s.assignOrder {
		existing := r.s.assignments[id]
		if existing.Active && existing.PlanID == a.PlanID && existing.ClientID == a.ClientID {
			return repository.ErrActiveAssignmentExists
		}
	}
	a.Active = a.IsActive()
	stored := *a
	stored.StepIDs = append([]string{}, a.StepIDs...)
	r.s.assignments[a.ID] = stored
	r.s.assignOrder = append(r.s.assignOrder, a.ID)
	return nil
}

func (r assignmentRepo) GetByID(_ context.Context, id string) (*domain.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r assignmentRepo) FindActive(_ context.Context, planID, clientID string) (*domain.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, id := range r.s.assignOrder {
		a := r.s.assignments[id]
		if a.Active && a.PlanID == planID && a.ClientID == clientID {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r assignmentRepo) List(_ context.Context, f repository.AssignmentFilter) ([]domain.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Assignment{}
	for _, id := range r.s.assignOrder {
		a := r.s.assignments[id]
		switch {
		case f.PlanID != "" && a.PlanID != f.PlanID,
			f.CoachID != "" && a.CoachID != f.CoachID,
			f.ClientID != "" && a.ClientID != f.ClientID,
			f.ActiveOnly && !a.Active:
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r assignmentRepo) UpdateStatus(_ context.Context, id string, from, to domain.AssignmentStatus) (*domain.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if a.Status != from {
		return nil, repository.ErrStatusConflict
	}
	a.Status = to
	a.Active = a.IsActive()
	a.UpdatedAt = r.s.now()
	r.s.assignments[id] = a
	return &a, nil
}

func (r assignmentRepo) Withdraw(_ context.Context, id string) (*domain.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !a.IsActive() {
		return nil, repository.ErrStatusConflict
	}
	now := r.s.now()
	a.WithdrawnAt = &now
	a.Active = false
	a.UpdatedAt = now
	r.s.assignments[id] = a
	return &a, nil
}

// --- progress ---

type progressRepo struct{ s *Store }

func (r progressRepo) CreateIfAbsent(_ context.Context, rec *domain.ProgressRecord) (*domain.ProgressRecord, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := domain.ProgressRecordID(rec.AssignmentID, rec.StepID)
	if existing, ok := r.s.progress[key]; ok {
		return &existing, false, nil
	}
	stored := *rec
	stored.ID = key
	r.s.progress[key] = stored
	r.s.progOrder = append(r.s.progOrder, key)
	return &stored, true, nil
}

func (r progressRepo) ListByAssignment(_ context.Context, assignmentID string) ([]domain.ProgressRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.ProgressRecord{}
	for _, key := range r.s.progOrder {
		if rec := r.s.progress[key]; rec.AssignmentID == assignmentID {
			out = append(out, rec)
		}
	}
	return out, nil
}
