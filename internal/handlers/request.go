package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"piggybank/internal/apperr"
	"piggybank/internal/models"
	"piggybank/internal/service"
	"piggybank/internal/validation"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst, rejecting fields dst does not
// declare. Bad amounts and mistyped fields surface as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(dst)

	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrMoneyFormat):
		return validation.ValidationError{Field: "amount", Message: models.ErrMoneyFormat.Error()}
	case errors.Is(err, models.ErrMoneyPrecision), errors.Is(err, models.ErrMoneyRange):
		return validation.ValidationError{Field: "amount", Message: err.Error()}
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return validation.ValidationError{Field: typeErr.Field, Message: typeErr.Field + " has the wrong type"}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return validation.ValidationError{Field: field, Message: "unknown field " + field}
	case errors.Is(err, io.EOF):
		return apperr.Wrap(err, apperr.KindValidation, CodeInvalidJSON, "request body is required")
	default:
		return apperr.Wrap(err, apperr.KindValidation, CodeInvalidJSON, "request body must be a JSON object")
	}
}

// pathID parses a numeric path parameter
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, validation.ValidationError{Field: name, Message: name + " must be a positive integer"}
	}
	return id, nil
}

// pageFromQuery reads limit and offset; other range checks happen in the service
func pageFromQuery(r *http.Request) (service.Page, error) {
	var page service.Page
	query := r.URL.Query()

	for _, param := range []struct {
		name string
		dst  *int
	}{
		{"limit", &page.Limit},
		{"offset", &page.Offset},
	} {
		raw := strings.TrimSpace(query.Get(param.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, validation.ValidationError{Field: param.name, Message: param.name + " must be an integer"}
		}
		// Page treats a zero limit as "use the default", so an explicit one is refused here
		if param.name == "limit" && n == 0 {
			return page, validation.ValidationError{Field: "limit", Message: fmt.Sprintf("limit must be between 1 and %d", validation.MaxPageLimit)}
		}
		*param.dst = n
	}
	return page, nil
}
