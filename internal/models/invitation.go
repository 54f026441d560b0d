package models

import "time"

// InvitationStatus is the lifecycle state of an invitation.
// Transitions only go pending -> redeemed or pending -> revoked.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationRedeemed InvitationStatus = "redeemed"
	InvitationRevoked  InvitationStatus = "revoked"
)

func (s InvitationStatus) Valid() bool {
	return s == InvitationPending || s == InvitationRedeemed || s == InvitationRevoked
}

// MaxPendingInvitations caps the open invitations a family may hold
const MaxPendingInvitations = 2

// Invitation is a single-use code admitting a co-parent into a family
type Invitation struct {
	ID                 int64            `json:"id"`
	FamilyID           int64            `json:"family_id"`
	Code               string           `json:"invite_code"`
	Status             InvitationStatus `json:"status"`
	Email              *string          `json:"email,omitempty"`
	CreatedByParentID  *int64           `json:"created_by_parent_id"`
	RedeemedByParentID *int64           `json:"redeemed_by_parent_id,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	ExpiresAt          time.Time        `json:"expires_at"`
	RedeemedAt         *time.Time       `json:"redeemed_at,omitempty"`
	RevokedAt          *time.Time       `json:"revoked_at,omitempty"`
}

func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsRedeemable reports whether the code can still be used at now
func (i *Invitation) IsRedeemable(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsExpired(now)
}
