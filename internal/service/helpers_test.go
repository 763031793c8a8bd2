package service

import (
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/lock"
	"alcyxob/plan-tracker/internal/repository"
	"alcyxob/plan-tracker/internal/repository/memory"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// ── Identities ──

var (
	coach1  = domain.Identity{UserID: "c1", Role: domain.RoleCoach}
	coach2  = domain.Identity{UserID: "c2", Role: domain.RoleCoach}
	admin   = domain.Identity{UserID: "a", Role: domain.RoleAdmin}
	client1 = domain.Identity{UserID: "u1", Role: domain.RoleClient}
	client2 = domain.Identity{UserID: "u2", Role: domain.RoleClient}
)

// ── Fake clock ──

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// ── Fake storage ──

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = buf.Bytes()
	return "https://media.test/" + key, nil
}

// ── Failing repositories ──

var errStoreDown = errors.New("store unavailable")

type failingPlanRepo struct {
	repository.PlanRepository
	failUpdate bool
	failGet    bool
}

func (f *failingPlanRepo) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	if f.failGet {
		return nil, errStoreDown
	}
	return f.PlanRepository.GetByID(ctx, id)
}

func (f *failingPlanRepo) Update(ctx context.Context, p *domain.Plan) error {
	if f.failUpdate {
		return errStoreDown
	}
	return f.PlanRepository.Update(ctx, p)
}

type failingAssignmentRepo struct {
	repository.AssignmentRepository
	mu         sync.Mutex
	failStatus int // number of UpdateStatus calls to fail
}

func (f *failingAssignmentRepo) UpdateStatus(ctx context.Context, id string, from, to domain.AssignmentStatus) (*domain.Assignment, error) {
	f.mu.Lock()
	if f.failStatus > 0 {
		f.failStatus--
		f.mu.Unlock()
		return nil, errStoreDown
	}
	f.mu.Unlock()
	return f.AssignmentRepository.UpdateStatus(ctx, id, from, to)
}

// ── Fixture ──

type fixture struct {
	store       *memory.Store
	plans       PlanService
	assignments AssignmentService
	progress    ProgressService
	users       UserService
	files       *fakeStorage
	clock       *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil, nil)
}

func newFixtureWith(t *testing.T, plans repository.PlanRepository, assignments repository.AssignmentRepository) *fixture {
	t.Helper()
	store := memory.NewStore()
	if plans == nil {
		plans = store.Plans()
	}
	if assignments == nil {
		assignments = store.Assignments()
	}
	logger := zap.NewNop()
	locker := lock.NewMemoryLocker()
	clock := newFakeClock()
	files := newFakeStorage()

	ps := NewPlanService(plans, files, locker, logger).(*planService)
	ps.now = clock.Now
	as := NewAssignmentService(plans, assignments, locker, logger).(*assignmentService)
	as.now = clock.Now
	pr := NewProgressService(plans, assignments, store.Progress(), locker, logger).(*progressService)
	pr.now = clock.Now
	us := NewUserService(store.Users(), logger).(*userService)
	us.now = clock.Now

	var seq int
	var mu sync.Mutex
	ps.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("p%d", seq)
	}

	return &fixture{store: store, plans: ps, assignments: as, progress: pr, users: us, files: files, clock: clock}
}

// publishedPlan creates a published plan owned by coach with steps of the given orders.
func (f *fixture) publishedPlan(t *testing.T, coach domain.Identity, title string, orders ...int) *domain.Plan {
	t.Helper()
	ctx := context.Background()
	plan, err := f.plans.CreatePlan(ctx, coach.UserID, PlanInput{Title: title, Published: true})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	for i, o := range orders {
		order := o
		if _, err := f.plans.AddStep(ctx, coach, plan.ID, StepInput{Title: fmt.Sprintf("step %d", i+1), Order: &order}); err != nil {
			t.Fatalf("AddStep: %v", err)
		}
	}
	plan, err = f.plans.GetPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	return plan
}

func (f *fixture) assign(t *testing.T, who domain.Identity, planID, clientID string) *domain.Assignment {
	t.Helper()
	a, _, err := f.assignments.CreateAssignment(context.Background(), who, planID, clientID, AssignOptions{})
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}
	return a
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }
