package handlers

import (
	"net/http"

	"piggybank/internal/service"
)

// InvitationHandler handles co-parent invitation endpoints
type InvitationHandler struct {
	invitationService *service.InvitationService
}

// NewInvitationHandler creates a new invitation handler
func NewInvitationHandler(invitationService *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

type createInvitationRequest struct {
	Email *string `json:"email"`
}

// List returns the caller's family invitations, pending only unless ?status= says otherwise
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	invitations, err := h.invitationService.ListInvitations(r.Context(), principal, r.URL.Query().Get("status"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, invitations)
}

// Create issues a new invitation code. The body is optional.
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createInvitationRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
	}

	created, err := h.invitationService.CreateInvitation(r.Context(), principal, req.Email)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, InvitationCreatedResponse{
		Invitation: created.Invitation,
		EmailSent:  created.EmailSent,
	})
}

// Revoke cancels a pending invitation
func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	invitationID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := h.invitationService.RevokeInvitation(r.Context(), principal, invitationID); err != nil {
		respondWithError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
