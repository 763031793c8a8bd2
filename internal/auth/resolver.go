// Package auth turns external identity claims into roles and answers
// permission questions. Nothing here performs I/O.
package auth

import "alcyxob/plan-tracker/internal/domain"

// metadataRoleKey is where hosted identity providers put the role inside a
// public-metadata blob.
const metadataRoleKey = "role"

// ResolveRole normalizes an arbitrary identity claim into a Role. Anything
// absent, malformed or unrecognized resolves to RoleClient.
func ResolveRole(claim any) domain.Role {
	switch v := claim.(type) {
	case domain.Role:
		return ResolveRole(string(v))
	case string:
		switch domain.Role(v) {
		case domain.RoleCoach, domain.RoleAdmin:
			return domain.Role(v)
		}
	case *string:
		if v != nil {
			return ResolveRole(*v)
		}
	case map[string]any:
		return ResolveRole(v[metadataRoleKey])
	case map[string]string:
		return ResolveRole(v[metadataRoleKey])
	}
	return domain.RoleClient
}
