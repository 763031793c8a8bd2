package auth

import (
	"fmt"

	"alcyxob/plan-tracker/internal/domain"
)

// Authorize reports whether role is one of required. An empty list allows everyone.
func Authorize(role domain.Role, required ...domain.Role) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}

// AuthorizeOwnership reports whether actorID may mutate a resource owned by ownerID.
// Admins bypass ownership.
func AuthorizeOwnership(role domain.Role, actorID, ownerID string) bool {
	if role == domain.RoleAdmin {
		return true
	}
	return actorID != "" && actorID == ownerID
}

// RequireOwnership is AuthorizeOwnership as an error, for use at the top of
// mutating operations.
func RequireOwnership(who domain.Identity, ownerID, resource string) error {
	if !AuthorizeOwnership(who.Role, who.UserID, ownerID) {
		return fmt.Errorf("%w: %s %s may not modify this %s", domain.ErrUnauthorized, who.Role, who.UserID, resource)
	}
	return nil
}

// RequireRole is Authorize as an error.
func RequireRole(who domain.Identity, required ...domain.Role) error {
	if !Authorize(who.Role, required...) {
		return fmt.Errorf("%w: role %s is not permitted", domain.ErrUnauthorized, who.Role)
	}
	return nil
}
