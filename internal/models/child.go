package models

import "time"

// Child is a PIN-authenticated family member who owns a balance.
// Version increments on every balance write and guards concurrent updates.
type Child struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	PINHash   string    `json:"-"`
	Avatar    string    `json:"avatar"`
	Age       *int      `json:"age"`
	Balance   Money     `json:"balance"`
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChildUpdate carries the optional fields of a profile edit
type ChildUpdate struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
	Age    *int    `json:"age"`
}

// IsEmpty reports whether the update changes nothing
func (u ChildUpdate) IsEmpty() bool {
	return u.Name == nil && u.Avatar == nil && u.Age == nil
}
