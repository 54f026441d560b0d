package handlers

// API error codes produced by the transport layer itself
const (
	CodeInvalidInput    = "invalid_input"
	CodeInvalidJSON     = "invalid_json"
	CodeInternalError   = "internal_error"
	CodeTooManyRequests = "too_many_requests"
	CodeUnavailable     = "unavailable"
)
