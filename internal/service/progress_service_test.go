package service

import (
	"alcyxob/plan-tracker/internal/domain"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func summary(t *testing.T, f *fixture, who domain.Identity, id string) domain.ProgressSummary {
	t.Helper()
	s, err := f.progress.GetProgressSummary(context.Background(), who, id)
	if err != nil {
		t.Fatalf("GetProgressSummary: %v", err)
	}
	return *s
}

func TestProgress_MorningRoute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.publishedPlan(t, coach1, "Morning Route", 1, 2)
	a := f.assign(t, coach1, p1.ID, "u1")
	s1, s2 := p1.Steps[0].ID, p1.Steps[1].ID

	if got := summary(t, f, client1, a.ID); got.Status != domain.StatusNotStarted || got.CompletedCount != 0 || got.TotalCount != 2 {
		t.Fatalf("initial summary = %+v", got)
	}

	if _, err := f.progress.MarkStepComplete(ctx, client1, a.ID, s1); err != nil {
		t.Fatalf("mark s1: %v", err)
	}
	if got := summary(t, f, client1, a.ID); got.Status != domain.StatusInProgress || got.CompletedCount != 1 {
		t.Fatalf("after s1 = %+v", got)
	}

	if _, err := f.progress.MarkStepComplete(ctx, client1, a.ID, s2); err != nil {
		t.Fatalf("mark s2: %v", err)
	}
	want := domain.ProgressSummary{AssignmentID: a.ID, Status: domain.StatusCompleted, CompletedCount: 2, TotalCount: 2}
	if got := summary(t, f, coach1, a.ID); got != want {
		t.Fatalf("after s2 = %+v, want %+v", got, want)
	}

	if _, err := f.progress.MarkStepComplete(ctx, client1, a.ID, s2); err != nil {
		t.Fatalf("repeat s2: %v", err)
	}
	if got := summary(t, f, coach1, a.ID); got != want {
		t.Fatalf("after repeat = %+v, want %+v", got, want)
	}
}

func TestProgress_RepeatKeepsFirstRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.publishedPlan(t, coach1, "Morning Route", 1, 2)
	a := f.assign(t, coach1, p1.ID, "u1")
	stepID := p1.Steps[0].ID

	first, err := f.progress.MarkStepComplete(ctx, client1, a.ID, stepID)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	f.clock.Advance(time.Hour)
	second, err := f.progress.MarkStepComplete(ctx, client1, a.ID, stepID)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.CompletedAt.Equal(first.CompletedAt) || second.ID != domain.ProgressRecordID(a.ID, stepID) {
		t.Fatalf("second = %+v, want first %+v", second, first)
	}

	recs, err := f.progress.ListRecords(ctx, coach1, a.ID)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(recs) != 1 || !recs[0].CompletedAt.Equal(f.clock.Now().Add(-time.Hour)) {
		t.Fatalf("records = %+v", recs)
	}
}

func TestProgress_ConcurrentMarksYieldOneRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.publishedPlan(t, coach1, "Morning Route", 1, 2)
	a := f.assign(t, coach1, p1.ID, "u1")

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.progress.MarkStepComplete(ctx, client1, a.ID, p1.Steps[i%2].ID)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	recs, _ := f.progress.ListRecords(ctx, client1, a.ID)
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if got := summary(t, f, client1, a.ID); got.Status != domain.StatusCompleted || got.CompletedCount != 2 {
		t.Fatalf("summary = %+v", got)
	}
}

func TestProgress_MarkStepCompleteChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.publishedPlan(t, coach1, "Morning Route", 1, 2)
	a := f.assign(t, coach1, p1.ID, "u1")
	stepID := p1.Steps[0].ID

	tests := []struct {
		name         string
		who          domain.Identity
		assignmentID string
		stepID       string
		want         error
	}{
		{"owning coach", coach1, a.ID, stepID, domain.ErrUnauthorized},
		{"admin", admin, a.ID, stepID, domain.ErrUnauthorized},
		{"other client", client2, a.ID, stepID, ErrAssignmentNotFound},
		{"missing assignment", client1, "missing", stepID, ErrAssignmentNotFound},
		{"unknown step", client1, a.ID, "nope", ErrStepNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.progress.MarkStepComplete(ctx, tt.who, tt.assignmentID, tt.stepID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if got := summary(t, f, client1, a.ID); got.CompletedCount != 0 || got.Status != domain.StatusNotStarted {
		t.Fatalf("summary changed: %+v", got)
	}
}

func TestProgress_WithdrawnAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.publishedPlan(t, coach1, "Morning Route", 1)
	a := f.assign(t, coach1, p1.ID, "u1")
	if _, err := f.assignments.Withdraw(ctx, coach1, a.ID); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if _, err := f.progress.MarkStepComplete(ctx, client1, a.ID, p1.Steps[0].ID); !errors.Is(err, ErrAssignmentWithdrawn) {
		t.Fatalf("err = %v, want ErrAssignmentWithdrawn", err)
	}
}

func TestProgress_RetryHealsFailedStatusWrite(t *testing.T) {
	base := newFixture(t).store
	repo := &failingAssignmentRepo{AssignmentRepository: base.Assignments()}
	f := newFixtureWith(t, nil, repo)
	ctx := context.Background()
	p1 := f.publishedPlan(t, coach1, "Morning Route", 1, 2)
	a := f.assign(t, coach1, p1.ID, "u1")

	repo.failStatus = 1
	_, err := f.progress.MarkStepComplete(ctx, client1, a.ID, p1.Steps[0].ID)
	if !errors.Is(err, domain.ErrDependencyFailure) {
		t.Fatalf("err = %v, want dependency failure", err)
	}
	if got := summary(t, f, client1, a.ID); got.CompletedCount != 1 || got.Status != domain.StatusNotStarted {
		t.Fatalf("after failure = %+v", got)
	}

	if _, err := f.progress.MarkStepComplete(ctx, client1, a.ID, p1.Steps[0].ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := summary(t, f, client1, a.ID); got.CompletedCount != 1 || got.Status != domain.StatusInProgress {
		t.Fatalf("after retry = %+v", got)
	}
}

func TestProgress_ReadsRequireParty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.publishedPlan(t, coach1, "Morning Route", 1)
	a := f.assign(t, coach1, p1.ID, "u1")

	if _, err := f.progress.GetProgressSummary(ctx, coach2, a.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("summary: err = %v", err)
	}
	if _, err := f.progress.ListRecords(ctx, client2, a.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("records: err = %v", err)
	}
	if _, err := f.progress.GetProgressSummary(ctx, admin, "missing"); !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("missing: err = %v", err)
	}
}

func TestProgress_PlanProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.publishedPlan(t, coach1, "Morning Route", 1, 2)
	a1 := f.assign(t, coach1, p1.ID, "u1")
	f.assign(t, coach1, p1.ID, "u2")
	if _, err := f.progress.MarkStepComplete(ctx, client1, a1.ID, p1.Steps[0].ID); err != nil {
		t.Fatalf("MarkStepComplete: %v", err)
	}

	rows, err := f.progress.PlanProgress(ctx, coach1, p1.ID)
	if err != nil {
		t.Fatalf("PlanProgress: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].ClientID != "u1" || rows[0].CompletedCount != 1 || rows[0].Status != domain.StatusInProgress {
		t.Errorf("u1 row = %+v", rows[0])
	}
	if rows[1].ClientID != "u2" || rows[1].CompletedCount != 0 || rows[1].TotalCount != 2 {
		t.Errorf("u2 row = %+v", rows[1])
	}

	if _, err := f.progress.PlanProgress(ctx, coach2, p1.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("non-owner: err = %v", err)
	}
}

func TestProgress_StepAddedAfterAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.publishedPlan(t, coach1, "Morning Route", 1, 2)
	a := f.assign(t, coach1, p1.ID, "u1")
	order := 3
	added, err := f.plans.AddStep(ctx, coach1, p1.ID, StepInput{Title: "step 3", Order: &order})
	if err != nil {
		t.Fatalf("AddStep: %v", err)
	}

	if _, err := f.progress.MarkStepComplete(ctx, client1, a.ID, added.ID); !errors.Is(err, ErrStepNotAssigned) {
		t.Fatalf("added step: err = %v, want ErrStepNotAssigned", err)
	}
	if _, err := f.progress.MarkStepComplete(ctx, client1, a.ID, p1.Steps[0].ID); err != nil {
		t.Fatalf("mark s1: %v", err)
	}
	if got := summary(t, f, client1, a.ID); got.Status != domain.StatusInProgress || got.CompletedCount != 1 || got.TotalCount != 2 {
		t.Fatalf("after s1 = %+v", got)
	}
	if _, err := f.progress.MarkStepComplete(ctx, client1, a.ID, p1.Steps[1].ID); err != nil {
		t.Fatalf("mark s2: %v", err)
	}
	if got := summary(t, f, client1, a.ID); got.Status != domain.StatusCompleted || got.CompletedCount != 2 || got.TotalCount != 2 {
		t.Fatalf("after s2 = %+v", got)
	}

	// A new assignment of the same plan includes the added step.
	b := f.assign(t, coach1, p1.ID, "u2")
	if got := summary(t, f, client2, b.ID); got.TotalCount != 3 {
		t.Fatalf("new assignment = %+v, want 3 steps", got)
	}
}

func TestProgress_StepDeletedAfterAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.publishedPlan(t, coach1, "Morning Route", 1, 2)
	a := f.assign(t, coach1, p1.ID, "u1")
	s1, s2 := p1.Steps[0].ID, p1.Steps[1].ID

	if _, err := f.progress.MarkStepComplete(ctx, client1, a.ID, s2); err != nil {
		t.Fatalf("mark s2: %v", err)
	}
	if err := f.plans.DeleteStep(ctx, coach1, p1.ID, s2); err != nil {
		t.Fatalf("DeleteStep: %v", err)
	}
	// The record for the deleted step no longer counts.
	if got := summary(t, f, client1, a.ID); got.CompletedCount != 0 || got.TotalCount != 1 || got.Status != domain.StatusInProgress {
		t.Fatalf("after delete = %+v", got)
	}

	if _, err := f.progress.MarkStepComplete(ctx, client1, a.ID, s1); err != nil {
		t.Fatalf("mark s1: %v", err)
	}
	want := domain.ProgressSummary{AssignmentID: a.ID, Status: domain.StatusCompleted, CompletedCount: 1, TotalCount: 1}
	if got := summary(t, f, coach1, a.ID); got != want {
		t.Fatalf("after s1 = %+v, want %+v", got, want)
	}
}
