package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldFamilyID     = "family_id"
	FieldChildID      = "child_id"
	FieldParentID     = "parent_id"
	FieldPrincipal    = "principal"
	FieldTxType       = "tx_type"
	FieldAmountCents  = "amount_cents"
	FieldAttempt      = "attempt"
	FieldInvitationID = "invitation_id"
	FieldCount        = "count"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentStorage    = "storage"
	ComponentAuth       = "auth"
	ComponentLedger     = "ledger"
	ComponentInvitation = "invitation"
	ComponentMembership = "membership"
	ComponentEmail      = "email"
	ComponentAMQP       = "amqp"
	ComponentSweeper    = "sweeper"
)
