package domain

import "time"

// ProgressRecord is evidence that a step was completed under an assignment.
// (AssignmentID, StepID) is unique.
type ProgressRecord struct {
	ID           string    `bson:"_id" json:"id"`
	AssignmentID string    `bson:"assignmentId" json:"assignmentId"`
	StepID       string    `bson:"stepId" json:"stepId"`
	ClientID     string    `bson:"clientId" json:"clientId"`
	Completed    bool      `bson:"completed" json:"completed"`
	CompletedAt  time.Time `bson:"completedAt" json:"completedAt"`
}

// ProgressRecordID is the deterministic key of a record.
func ProgressRecordID(assignmentID, stepID string) string {
	return assignmentID + ":" + stepID
}

// ProgressSummary is the read-only aggregate for an assignment.
type ProgressSummary struct {
	AssignmentID   string           `json:"assignmentId"`
	Status         AssignmentStatus `json:"status"`
	CompletedCount int              `json:"completedCount"`
	TotalCount     int              `json:"totalCount"`
}
