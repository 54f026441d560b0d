package handlers

import (
	"net/http"

	"piggybank/internal/models"
	"piggybank/internal/service"
	"piggybank/internal/validation"
)

// TransactionHandler handles ledger endpoints
type TransactionHandler struct {
	ledgerService *service.LedgerService
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(ledgerService *service.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService}
}

type createTransactionRequest struct {
	ChildID     int64                  `json:"child_id"`
	Type        models.TransactionType `json:"type"`
	Amount      *models.Money          `json:"amount"`
	Description *string                `json:"description"`
	Category    *string                `json:"category"`
}

// Create credits or debits a child's balance
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if req.ChildID < 1 {
		respondWithError(w, r, validation.ValidationError{Field: "child_id", Message: "child_id is required"})
		return
	}
	if req.Amount == nil {
		respondWithError(w, r, validation.ValidationError{Field: "amount", Message: "amount is required"})
		return
	}

	entry, err := h.ledgerService.ApplyTransaction(r.Context(), principal, service.ApplyInput{
		ChildID:     req.ChildID,
		Type:        req.Type,
		Amount:      *req.Amount,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// Get returns one transaction visible to the caller
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	transactionID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	entry, err := h.ledgerService.GetTransaction(r.Context(), principal, transactionID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// ListFamily pages through every transaction in the caller's family
func (h *TransactionHandler) ListFamily(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	page, err := pageFromQuery(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	entries, err := h.ledgerService.ListFamilyTransactions(r.Context(), principal, page)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// ListChild pages through one child's transactions
func (h *TransactionHandler) ListChild(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	childID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	entries, err := h.ledgerService.ListChildTransactions(r.Context(), principal, childID, page)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// ListMine pages through the signed-in child's own transactions
func (h *TransactionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	page, err := pageFromQuery(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	entries, err := h.ledgerService.ListMyTransactions(r.Context(), principal, page)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}
