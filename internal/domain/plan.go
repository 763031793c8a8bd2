package domain

import (
	"sort"
	"strings"
	"time"
)

// MediaType describes what a step's media reference points at.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Plan is a coach-authored, ordered sequence of steps.
type Plan struct {
	ID          string    `bson:"_id" json:"id"`
	CoachID     string    `bson:"coachId" json:"coachId"` // owner
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Tags        []string  `bson:"tags,omitempty" json:"tags,omitempty"`
	Published   bool      `bson:"published" json:"published"`
	Steps       []Step    `bson:"steps" json:"steps"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Step is a single instruction unit. Steps live inside their plan document.
type Step struct {
	ID              string    `bson:"id" json:"id"`
	Title           string    `bson:"title" json:"title"`
	Instruction     string    `bson:"instruction" json:"instruction"`
	NarrationText   string    `bson:"narrationText,omitempty" json:"narrationText,omitempty"`
	DurationMinutes *int      `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	MediaURL        *string   `bson:"mediaUrl,omitempty" json:"mediaUrl,omitempty"`
	MediaType       MediaType `bson:"mediaType,omitempty" json:"mediaType,omitempty"`
	Order           int       `bson:"order" json:"order"`
}

// StepByID returns the step with the given id and its index, or -1.
func (p *Plan) StepByID(id string) (*Step, int) {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i], i
		}
	}
	return nil, -1
}

// SortSteps orders steps ascending by Order. Ties keep their current relative
// position, which is insertion order as long as new steps are appended.
func SortSteps(steps []Step) {
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
}

// NormalizeTags trims, drops empties and de-duplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
