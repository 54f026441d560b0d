package service

import (
	"time"

	"piggybank/internal/apperr"
	"piggybank/internal/security"
)

var (
	ErrUsernameTaken          = apperr.New(apperr.KindConflict, "username_taken", "username is already taken")
	ErrInvalidCredentials     = apperr.New(apperr.KindAuthentication, "invalid_credentials", "invalid username or credentials")
	ErrSessionInvalid         = apperr.New(apperr.KindAuthentication, "session_invalid", "session is invalid or has expired")
	ErrForbidden              = apperr.New(apperr.KindAuthorization, "forbidden", "this account may not perform that action")
	ErrFamilyNotFound         = apperr.New(apperr.KindNotFound, "family_not_found", "family not found")
	ErrChildNotFound          = apperr.New(apperr.KindNotFound, "child_not_found", "child not found")
	ErrTransactionNotFound    = apperr.New(apperr.KindNotFound, "transaction_not_found", "transaction not found")
	ErrInvitationNotFound     = apperr.New(apperr.KindNotFound, "invitation_not_found", "pending invitation not found")
	ErrInsufficientFunds      = apperr.New(apperr.KindInsufficientFunds, "insufficient_funds", "amount exceeds the current balance")
	ErrInvitationLimitReached = apperr.New(apperr.KindConflict, "invitation_limit_reached", "family already has the maximum number of pending invitations")
	ErrInvalidOrExpiredCode   = apperr.New(apperr.KindConflict, "invalid_or_expired_code", "invitation code is invalid or has expired")
	ErrLedgerBusy             = apperr.New(apperr.KindConflict, "ledger_busy", "balance is being updated concurrently, try again")
	ErrTooManyAttempts        = apperr.New(apperr.KindRateLimited, "too_many_attempts", "too many failed sign-in attempts, try again later")
)

// tooManyAttempts carries the remaining lockout so transports can send Retry-After
func tooManyAttempts(retryAfter time.Duration) error {
	return apperr.Wrap(&security.LockoutError{RetryAfter: retryAfter},
		ErrTooManyAttempts.Kind, ErrTooManyAttempts.Code, ErrTooManyAttempts.Message)
}
