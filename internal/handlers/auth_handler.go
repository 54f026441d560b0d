package handlers

import (
	"net/http"

	"piggybank/internal/service"
)

// AuthHandler handles registration, sign-in and session endpoints
type AuthHandler struct {
	authService       *service.AuthService
	membershipService *service.MembershipService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, membershipService *service.MembershipService) *AuthHandler {
	return &AuthHandler{
		authService:       authService,
		membershipService: membershipService,
	}
}

type registerRequest struct {
	FamilyName     string `json:"family_name"`
	ParentName     string `json:"parent_name"`
	ParentUsername string `json:"parent_username"`
	ParentPassword string `json:"parent_password"`
}

type parentLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// childLoginRequest accepts the PIN as "pin" or, for older clients, "password"
type childLoginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
	Password string `json:"password"`
}

type joinRequest struct {
	InviteCode string `json:"invite_code"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Password   string `json:"password"`
}

// Register creates a family and its owner, returning a session
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	result, err := h.authService.RegisterFamily(r.Context(), service.RegisterInput{
		FamilyName: req.FamilyName,
		ParentName: req.ParentName,
		Username:   req.ParentUsername,
		Password:   req.ParentPassword,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse(result))
}

// LoginParent signs a parent in with username and password
func (h *AuthHandler) LoginParent(w http.ResponseWriter, r *http.Request) {
	var req parentLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	result, err := h.authService.LoginParent(r.Context(), req.Username, req.Password)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse(result))
}

// LoginChild signs a child in with username and PIN
func (h *AuthHandler) LoginChild(w http.ResponseWriter, r *http.Request) {
	var req childLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	pin := req.PIN
	if pin == "" {
		pin = req.Password
	}

	result, err := h.authService.LoginChild(r.Context(), req.Username, pin)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse(result))
}

// Join redeems an invitation code into a new co-parent account
func (h *AuthHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	result, err := h.membershipService.RedeemInvitation(r.Context(), service.RedeemInput{
		Code:     req.InviteCode,
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse(result))
}

// Logout revokes the current session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	if err := h.authService.Logout(r.Context(), principal); err != nil {
		respondWithError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in parent or child
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	profile, err := h.authService.Me(r.Context(), principal)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	resp := MeResponse{Family: profile.Family}
	if profile.Parent != nil {
		resp.User = parentView(profile.Parent)
	} else {
		resp.User = childView(profile.Child)
	}
	respondJSON(w, http.StatusOK, resp)
}
