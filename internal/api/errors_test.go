package api

import (
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/service"
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrPlanNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: nope", domain.ErrUnauthorized), http.StatusForbidden},
		{domain.Validationf("bad"), http.StatusBadRequest},
		{service.ErrAssignmentWithdrawn, http.StatusConflict},
		{domain.Dependency("plans.get", errors.New("down")), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
