package handlers

import (
	"net/http"

	"piggybank/internal/models"
	"piggybank/internal/service"
)

// ParentHandler handles the family and child management endpoints
type ParentHandler struct {
	familyService *service.FamilyService
}

// NewParentHandler creates a new parent handler
func NewParentHandler(familyService *service.FamilyService) *ParentHandler {
	return &ParentHandler{familyService: familyService}
}

// createChildRequest accepts the PIN as "pin" or, for older clients, "password"
type createChildRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	PIN      string `json:"pin"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
	Age      *int   `json:"age"`
}

// ShowFamily returns the caller's family and its parents
func (h *ParentHandler) ShowFamily(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	overview, err := h.familyService.GetFamily(r.Context(), principal)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, FamilyResponse{Family: overview.Family, Parents: overview.Parents})
}

// ListChildren returns every child in the caller's family
func (h *ParentHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	children, err := h.familyService.ListChildren(r.Context(), principal)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, children)
}

// CreateChild adds a child to the caller's family
func (h *ParentHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createChildRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	pin := req.PIN
	if pin == "" {
		pin = req.Password
	}

	created, err := h.familyService.CreateChild(r.Context(), principal, service.CreateChildInput{
		Username: req.Username,
		Name:     req.Name,
		PIN:      pin,
		Avatar:   req.Avatar,
		Age:      req.Age,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, ChildCreatedResponse{Child: created.Child, GeneratedPIN: created.GeneratedPIN})
}

// GetChild returns one child of the caller's family
func (h *ParentHandler) GetChild(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	childID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	child, err := h.familyService.GetChild(r.Context(), principal, childID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, child)
}

// UpdateChild edits a child's name, avatar or age
func (h *ParentHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	childID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var update models.ChildUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondWithError(w, r, err)
		return
	}

	child, err := h.familyService.UpdateChild(r.Context(), principal, childID, update)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, child)
}
