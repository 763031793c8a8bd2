package service

import (
	"alcyxob/plan-tracker/internal/domain"
	"strings"

	"github.com/google/uuid"
)

// StepInput carries the fields of a new step.
type StepInput struct {
	Title           string
	Instruction     string
	NarrationText   string
	DurationMinutes *int
	MediaURL        *string
	Order           *int // nil means 0
}

// StepPatch is a partial step update; nil fields are left alone.
type StepPatch struct {
	Title           *string
	Instruction     *string
	NarrationText   *string
	DurationMinutes *int
	MediaURL        *string
	Order           *int
}

// StepOrdering keeps a plan's steps in a stable ascending order. Equal
// orders keep insertion order because steps are always appended before the
// stable sort. Deleting never renumbers.
type StepOrdering struct {
	newID func() string
}

// NewStepOrdering returns a StepOrdering that issues uuid step ids.
func NewStepOrdering() *StepOrdering {
	return &StepOrdering{newID: uuid.NewString}
}

// Add appends a new step with a fresh id and re-sorts. It returns the new
// slice and the created step.
func (o *StepOrdering) Add(steps []domain.Step, in StepInput) ([]domain.Step, domain.Step, error) {
	if err := validateStep(in.Title, in.DurationMinutes); err != nil {
		return nil, domain.Step{}, err
	}
	step := domain.Step{
		ID:              o.newID(),
		Title:           strings.TrimSpace(in.Title),
		Instruction:     in.Instruction,
		NarrationText:   in.NarrationText,
		DurationMinutes: in.DurationMinutes,
		MediaURL:        in.MediaURL,
	}
	if in.Order != nil {
		step.Order = *in.Order
	}
	out := append(append(make([]domain.Step, 0, len(steps)+1), steps...), step)
	domain.SortSteps(out)
	return out, step, nil
}

// Update merges patch into the step with id and re-sorts.
func (o *StepOrdering) Update(steps []domain.Step, id string, patch StepPatch) ([]domain.Step, domain.Step, error) {
	out := append([]domain.Step(nil), steps...)
	idx := -1
	for i := range out {
		if out[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domain.Step{}, ErrStepNotFound
	}
	s := out[idx]
	if patch.Title != nil {
		s.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Instruction != nil {
		s.Instruction = *patch.Instruction
	}
	if patch.NarrationText != nil {
		s.NarrationText = *patch.NarrationText
	}
	if patch.DurationMinutes != nil {
		d := *patch.DurationMinutes
		s.DurationMinutes = &d
	}
	if patch.MediaURL != nil {
		u := *patch.MediaURL
		s.MediaURL = &u
	}
	if patch.Order != nil {
		s.Order = *patch.Order
	}
	if err := validateStep(s.Title, s.DurationMinutes); err != nil {
		return nil, domain.Step{}, err
	}
	out[idx] = s
	domain.SortSteps(out)
	return out, s, nil
}

// Delete removes the step with id. Remaining orders are untouched.
func (o *StepOrdering) Delete(steps []domain.Step, id string) ([]domain.Step, error) {
	out := make([]domain.Step, 0, len(steps))
	found := false
	for _, s := range steps {
		if s.ID == id {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		return nil, ErrStepNotFound
	}
	return out, nil
}

func validateStep(title string, duration *int) error {
	if strings.TrimSpace(title) == "" {
		return domain.Validationf("step title is required")
	}
	if duration != nil && *duration < 0 {
		return domain.Validationf("step duration cannot be negative")
	}
	return nil
}
