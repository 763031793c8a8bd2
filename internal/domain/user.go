package domain

import "time"

// Role is the closed set of capabilities a caller can hold.
type Role string

const (
	RoleClient Role = "client"
	RoleCoach  Role = "coach"
	RoleAdmin  Role = "admin"
)

// User is created on first sign-in. The ID is the identity provider's opaque id.
type User struct {
	ID        string    `bson:"_id" json:"id"`
	Role      Role      `bson:"role" json:"role"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Identity is an authenticated caller after its role claim has been resolved.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) IsClient() bool {
	return i.Role == RoleClient
}
