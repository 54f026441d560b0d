package handlers

import (
	"time"

	"piggybank/internal/models"
	"piggybank/internal/service"
)

// tokenType is the scheme clients use in the Authorization header
const tokenType = "bearer"

// UserView is the principal summary returned with every session
type UserView struct {
	ID       int64         `json:"id"`
	Username string        `json:"username"`
	Name     string        `json:"name"`
	FamilyID int64         `json:"family_id"`
	UserType string        `json:"user_type"`
	Role     models.Role   `json:"role,omitempty"`
	Avatar   *string       `json:"avatar,omitempty"`
	Age      *int          `json:"age,omitempty"`
	Balance  *models.Money `json:"balance,omitempty"`
}

// AuthResponse is the body of every successful sign-in
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserView  `json:"user"`
}

// MeResponse describes the signed-in principal
type MeResponse struct {
	User   UserView       `json:"user"`
	Family *models.Family `json:"family"`
}

// FamilyResponse is a family with its parents
type FamilyResponse struct {
	*models.Family
	Parents []models.Parent `json:"parents"`
}

// ChildCreatedResponse is a new child; GeneratedPIN is present only when
// the server chose the PIN.
type ChildCreatedResponse struct {
	*models.Child
	GeneratedPIN string `json:"generated_pin,omitempty"`
}

// InvitationCreatedResponse is a new invitation and its mail delivery state
type InvitationCreatedResponse struct {
	*models.Invitation
	EmailSent bool `json:"email_sent"`
}

func parentView(p *models.Parent) UserView {
	return UserView{
		ID:       p.ID,
		Username: p.Username,
		Name:     p.Name,
		FamilyID: p.FamilyID,
		UserType: string(models.PrincipalParent),
		Role:     p.Role,
	}
}

func childView(c *models.Child) UserView {
	avatar := c.Avatar
	balance := c.Balance
	return UserView{
		ID:       c.ID,
		Username: c.Username,
		Name:     c.Name,
		FamilyID: c.FamilyID,
		UserType: string(models.PrincipalChild),
		Avatar:   &avatar,
		Age:      c.Age,
		Balance:  &balance,
	}
}

func authResponse(result *service.AuthResult) AuthResponse {
	resp := AuthResponse{
		AccessToken: result.Token,
		TokenType:   tokenType,
		ExpiresAt:   result.ExpiresAt,
	}
	switch {
	case result.Parent != nil:
		resp.User = parentView(result.Parent)
	case result.Child != nil:
		resp.User = childView(result.Child)
	}
	return resp
}
