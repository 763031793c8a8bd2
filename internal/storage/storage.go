package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// FileStorage is the object-storage collaborator. Upload stores body under
// objectKey and returns a publicly resolvable URL for it.
type FileStorage interface {
	Upload(ctx context.Context, objectKey, contentType string, body io.Reader, size int64) (string, error)
}

// defaultExtension is used when a file name carries no extension.
const defaultExtension = "jpg"

// StepMediaKey builds plans/{planId}/steps/{stepId}_{unixMillis}.{ext}.
func StepMediaKey(planID, stepID string, at time.Time, fileName string) string {
	return path.Join("plans", planID, "steps", fmt.Sprintf("%s_%d.%s", stepID, at.UnixMilli(), Extension(fileName)))
}

// Extension returns the lower-cased extension of fileName without the dot.
func Extension(fileName string) string {
	ext := strings.TrimPrefix(path.Ext(path.Base(fileName)), ".")
	if ext == "" {
		return defaultExtension
	}
	return strings.ToLower(ext)
}

// ErrNotConfigured is returned by Unconfigured.
var ErrNotConfigured = errors.New("object storage is not configured")

// Unconfigured rejects every upload. It stands in when no bucket is set.
type Unconfigured struct{}

func (Unconfigured) Upload(context.Context, string, string, io.Reader, int64) (string, error) {
	return "", ErrNotConfigured
}
