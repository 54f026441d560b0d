package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"piggybank/internal/apperr"
	"piggybank/internal/log"
	"piggybank/internal/security"
	"piggybank/internal/validation"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// statusForKind maps an error kind onto its HTTP status
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError renders err as a JSON error body. Unclassified errors are
// logged with their detail and reach the client only as an opaque message.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusForKind(kind)
	detail := errorDetail{Kind: string(kind)}

	var validationErr validation.ValidationError
	switch appErr, ok := apperr.As(err); {
	case errors.As(err, &validationErr):
		detail.Code = CodeInvalidInput
		detail.Message = validationErr.Message
		detail.Field = validationErr.Field
	case ok && kind != apperr.KindInternal:
		detail.Code = appErr.Code
		detail.Message = appErr.Message
	default:
		status = http.StatusInternalServerError
		detail.Kind = string(apperr.KindInternal)
		detail.Code = CodeInternalError
		detail.Message = "internal server error"
	}

	logger := log.FromContext(r.Context())
	switch {
	case status >= http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "request failed", log.FieldError, err)
	case kind == apperr.KindAuthorization:
		logger.WarnContext(r.Context(), "request denied", log.FieldError, err)
	}

	var lockout *security.LockoutError
	if errors.As(err, &lockout) {
		w.Header().Set("Retry-After", strconv.Itoa(lockout.Seconds()))
	}

	writeError(w, status, detail)
}

func writeError(w http.ResponseWriter, status int, detail errorDetail) {
	respondJSON(w, status, errorBody{Error: detail})
}

// respondJSON writes v as the JSON response body
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
