package service

import (
	"alcyxob/plan-tracker/internal/domain"
	"errors"
	"fmt"
	"testing"
)

func newTestOrdering() *StepOrdering {
	n := 0
	return &StepOrdering{newID: func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}}
}

func ids(steps []domain.Step) string {
	out := ""
	for i, s := range steps {
		if i > 0 {
			out += ","
		}
		out += s.Title
	}
	return out
}

func TestStepOrdering_AddKeepsInsertionOrderForTies(t *testing.T) {
	o := newTestOrdering()
	var steps []domain.Step
	for _, in := range []StepInput{
		{Title: "A", Order: intPtr(2)},
		{Title: "B", Order: intPtr(1)},
		{Title: "C", Order: intPtr(1)},
	} {
		var err error
		steps, _, err = o.Add(steps, in)
		if err != nil {
			t.Fatalf("Add(%s): %v", in.Title, err)
		}
	}
	if got := ids(steps); got != "B,C,A" {
		t.Fatalf("order = %s, want B,C,A", got)
	}
}

func TestStepOrdering_AddAssignsFreshIDs(t *testing.T) {
	o := newTestOrdering()
	steps, a, _ := o.Add(nil, StepInput{Title: "A"})
	steps, b, _ := o.Add(steps, StepInput{Title: "B"})
	if a.ID == b.ID || a.ID == "" {
		t.Fatalf("ids = %q, %q", a.ID, b.ID)
	}
	if a.Order != 0 || len(steps) != 2 {
		t.Fatalf("default order = %d, len = %d", a.Order, len(steps))
	}
}

func TestStepOrdering_AddValidates(t *testing.T) {
	o := newTestOrdering()
	if _, _, err := o.Add(nil, StepInput{Title: "  "}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty title: err = %v", err)
	}
	if _, _, err := o.Add(nil, StepInput{Title: "x", DurationMinutes: intPtr(-5)}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("negative duration: err = %v", err)
	}
}

func TestStepOrdering_DeleteDoesNotRenumber(t *testing.T) {
	o := newTestOrdering()
	var steps []domain.Step
	for i, title := range []string{"A", "B", "C"} {
		steps, _, _ = o.Add(steps, StepInput{Title: title, Order: intPtr((i + 1) * 10)})
	}
	steps, err := o.Delete(steps, steps[1].ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(steps) != 2 || steps[0].Order != 10 || steps[1].Order != 30 {
		t.Fatalf("after delete = %+v", steps)
	}
	if _, err := o.Delete(steps, "missing"); !errors.Is(err, ErrStepNotFound) {
		t.Fatalf("missing: err = %v", err)
	}
}

func TestStepOrdering_UpdateResorts(t *testing.T) {
	o := newTestOrdering()
	var steps []domain.Step
	steps, a, _ := o.Add(steps, StepInput{Title: "A", Order: intPtr(1)})
	steps, _, _ = o.Add(steps, StepInput{Title: "B", Order: intPtr(2)})

	steps, updated, err := o.Update(steps, a.ID, StepPatch{Order: intPtr(3), NarrationText: strPtr("read aloud")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := ids(steps); got != "B,A" {
		t.Fatalf("order = %s, want B,A", got)
	}
	if updated.NarrationText != "read aloud" || updated.Title != "A" {
		t.Fatalf("updated = %+v", updated)
	}
	if _, _, err := o.Update(steps, a.ID, StepPatch{Title: strPtr("")}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank title: err = %v", err)
	}
	if _, _, err := o.Update(steps, "nope", StepPatch{}); !errors.Is(err, ErrStepNotFound) {
		t.Fatalf("missing: err = %v", err)
	}
}
