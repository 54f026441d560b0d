package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"piggybank/internal/apperr"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	pinRegex      = regexp.MustCompile(`^[0-9]{4}$`)
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores anything longer
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MaxNameLength     = 100
	MaxAvatarLength   = 10
	MinChildAge       = 1
	MaxChildAge       = 18
	MaxDescription    = 500
	MaxCategory       = 50

	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrorKind classifies every validation failure as a client error
func (e ValidationError) ErrorKind() apperr.Kind {
	return apperr.KindValidation
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < MinPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	if len(password) > MaxPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength)}
	}
	return nil
}

// ValidatePIN checks that a child PIN is exactly four digits
func ValidatePIN(pin string) error {
	if pin == "" {
		return ValidationError{Field: "pin", Message: "pin is required"}
	}
	if !pinRegex.MatchString(pin) {
		return ValidationError{Field: "pin", Message: "pin must be exactly 4 digits"}
	}
	return nil
}

// ValidateUsername checks length and the allowed character set
func ValidateUsername(username string) error {
	if username == "" {
		return ValidationError{Field: "username", Message: "username is required"}
	}
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return ValidationError{Field: "username", Message: fmt.Sprintf("username must be %d to %d characters", MinUsernameLength, MaxUsernameLength)}
	}
	if !usernameRegex.MatchString(username) {
		return ValidationError{Field: "username", Message: "username may only contain letters, digits and underscores"}
	}
	return nil
}

// ValidateName checks a display name reported under field
func ValidateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, MaxNameLength)}
	}
	return nil
}

func ValidateAvatar(avatar string) error {
	if utf8.RuneCountInString(avatar) > MaxAvatarLength {
		return ValidationError{Field: "avatar", Message: fmt.Sprintf("avatar must be at most %d characters", MaxAvatarLength)}
	}
	return nil
}

// ValidateAge accepts a missing age
func ValidateAge(age *int) error {
	if age == nil {
		return nil
	}
	if *age < MinChildAge || *age > MaxChildAge {
		return ValidationError{Field: "age", Message: fmt.Sprintf("age must be between %d and %d", MinChildAge, MaxChildAge)}
	}
	return nil
}

func ValidateDescription(description *string) error {
	if description != nil && utf8.RuneCountInString(*description) > MaxDescription {
		return ValidationError{Field: "description", Message: fmt.Sprintf("description must be at most %d characters", MaxDescription)}
	}
	return nil
}

func ValidateCategory(category *string) error {
	if category != nil && utf8.RuneCountInString(*category) > MaxCategory {
		return ValidationError{Field: "category", Message: fmt.Sprintf("category must be at most %d characters", MaxCategory)}
	}
	return nil
}

// Pagination normalizes list parameters. A zero limit means the default.
func Pagination(limit, offset int) (int, int, error) {
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if limit < 1 || limit > MaxPageLimit {
		return 0, 0, ValidationError{Field: "limit", Message: fmt.Sprintf("limit must be between 1 and %d", MaxPageLimit)}
	}
	if offset < 0 {
		return 0, 0, ValidationError{Field: "offset", Message: "offset must not be negative"}
	}
	return limit, offset, nil
}
