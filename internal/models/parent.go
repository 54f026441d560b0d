package models

import "time"

// Role distinguishes the family owner from parents who joined by invitation
type Role string

const (
	RoleOwner    Role = "owner"
	RoleCoParent Role = "co_parent"
)

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleCoParent
}

// Parent is a password-authenticated adult in a family
type Parent struct {
	ID           int64     `json:"id"`
	FamilyID     int64     `json:"family_id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
