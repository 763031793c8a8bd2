package api

import (
	"alcyxob/plan-tracker/internal/domain"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDependencyFailure), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes err with the status of its kind. Collaborator details
// are logged, not returned.
func respondError(c *gin.Context, err error) {
	code := statusFor(err)
	_ = c.Error(err)
	switch code {
	case http.StatusServiceUnavailable:
		abortWithError(c, code, "A backing service is unavailable, please retry.")
	case http.StatusInternalServerError:
		abortWithError(c, code, "Internal server error.")
	default:
		abortWithError(c, code, err.Error())
	}
}

func bindError(c *gin.Context, err error) {
	abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
}
