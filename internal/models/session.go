package models

import "time"

// PrincipalKind tags an authenticated actor as a parent or a child
type PrincipalKind string

const (
	PrincipalParent PrincipalKind = "parent"
	PrincipalChild  PrincipalKind = "child"
)

func (k PrincipalKind) Valid() bool {
	return k == PrincipalParent || k == PrincipalChild
}

// Principal is the resolved identity behind a session token.
// Role is only set for parents.
type Principal struct {
	Kind      PrincipalKind
	ID        int64
	FamilyID  int64
	Role      Role
	SessionID string
	ExpiresAt time.Time
}

func (p Principal) IsParent() bool {
	return p.Kind == PrincipalParent
}

func (p Principal) IsChild() bool {
	return p.Kind == PrincipalChild
}

// Session is the server-side record of an issued token, used for revocation
type Session struct {
	ID          string
	Kind        PrincipalKind
	PrincipalID int64
	FamilyID    int64
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsActive reports whether the session can still authenticate requests
func (s *Session) IsActive() bool {
	return s.RevokedAt == nil && !s.IsExpired()
}
