package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"piggybank/internal/credentials"
	"piggybank/internal/database"
	"piggybank/internal/events"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/repository"
	"piggybank/internal/validation"
)

// maxCodeAttempts bounds regeneration of colliding invite codes
const maxCodeAttempts = 5

// StatusFilterAll lists invitations in every state
const StatusFilterAll = "all"

// InvitationMailer delivers invite codes by email
type InvitationMailer interface {
	IsEnabled() bool
	SendInvitationEmail(ctx context.Context, msg InvitationEmail) error
}

type invitationCreatedPayload struct {
	InvitationID int64     `json:"invitation_id"`
	CreatedBy    int64     `json:"created_by_parent_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	EmailSent    bool      `json:"email_sent"`
}

// CreatedInvitation is a new invitation and whether its code was mailed
type CreatedInvitation struct {
	Invitation *models.Invitation
	EmailSent  bool
}

// InvitationService issues, lists and revokes family join codes
type InvitationService struct {
	db          *database.DB
	families    *repository.FamilyRepository
	parents     *repository.ParentRepository
	invitations *repository.InvitationRepository
	mailer      InvitationMailer
	publisher   events.Publisher
	ttl         time.Duration
	logger      *log.Logger
	now         Clock
}

// NewInvitationService creates a new invitation service. mailer may be nil.
func NewInvitationService(db *database.DB, mailer InvitationMailer, publisher events.Publisher, ttl time.Duration, logger *log.Logger) *InvitationService {
	return &InvitationService{
		db:          db,
		families:    repository.NewFamilyRepository(db),
		parents:     repository.NewParentRepository(db),
		invitations: repository.NewInvitationRepository(db),
		mailer:      mailer,
		publisher:   publisher,
		ttl:         ttl,
		logger:      logger.WithComponent(log.ComponentInvitation),
		now:         SystemClock,
	}
}

// CreateInvitation issues a new pending code for the caller's family.
// A family holds at most models.MaxPendingInvitations unexpired pending codes.
func (s *InvitationService) CreateInvitation(ctx context.Context, p models.Principal, email *string) (*CreatedInvitation, error) {
	if err := requireParent(p); err != nil {
		return nil, err
	}

	email = trimmedOrNil(email)
	if email != nil {
		if err := validation.ValidateEmail(*email); err != nil {
			return nil, err
		}
	}

	now := s.now()
	createdBy := p.ID
	inv := &models.Invitation{
		FamilyID:          p.FamilyID,
		Email:             email,
		CreatedByParentID: &createdBy,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.ttl),
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		// Writing the family row first serializes concurrent creations for
		// one family, so the count below cannot go stale before the insert.
		found, err := s.families.WithTx(tx).TouchFamily(ctx, p.FamilyID, now)
		if err != nil {
			return err
		}
		if !found {
			return ErrFamilyNotFound
		}

		invitations := s.invitations.WithTx(tx)
		pending, err := invitations.CountActivePending(ctx, p.FamilyID, now)
		if err != nil {
			return err
		}
		if pending >= models.MaxPendingInvitations {
			return ErrInvitationLimitReached
		}

		return s.insertWithFreshCode(ctx, invitations, inv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "invitation created",
		log.FieldFamilyID, p.FamilyID,
		log.FieldInvitationID, inv.ID,
		log.FieldParentID, p.ID,
	)

	result := &CreatedInvitation{Invitation: inv}
	if email != nil {
		result.EmailSent = s.mailInvitation(ctx, p, inv)
	}
	publish(ctx, s.publisher, s.logger, events.InvitationCreated, inv.FamilyID, now, invitationCreatedPayload{
		InvitationID: inv.ID,
		CreatedBy:    p.ID,
		ExpiresAt:    inv.ExpiresAt,
		EmailSent:    result.EmailSent,
	})

	return result, nil
}

func (s *InvitationService) insertWithFreshCode(ctx context.Context, invitations *repository.InvitationRepository, inv *models.Invitation) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := credentials.GenerateInviteCode()
		if err != nil {
			return fmt.Errorf("failed to generate invite code: %w", err)
		}

		exists, err := invitations.CodeExists(ctx, code)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		inv.Code = code
		err = invitations.CreateInvitation(ctx, inv)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to generate a unique invite code after %d attempts", maxCodeAttempts)
}

// mailInvitation sends the code when a mailer is configured. Delivery
// problems are logged and reported as not sent; the invitation stands.
func (s *InvitationService) mailInvitation(ctx context.Context, p models.Principal, inv *models.Invitation) bool {
	if s.mailer == nil || !s.mailer.IsEnabled() {
		return false
	}

	msg := InvitationEmail{To: *inv.Email, Code: inv.Code, ExpiresAt: inv.ExpiresAt}
	if family, err := s.families.GetFamilyByID(ctx, p.FamilyID); err == nil && family != nil {
		msg.FamilyName = family.Name
	}
	if parent, err := s.parents.GetParentByID(ctx, p.ID); err == nil && parent != nil {
		msg.InviterName = parent.Name
	}

	if err := s.mailer.SendInvitationEmail(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to send invitation email",
			log.FieldInvitationID, inv.ID,
			log.FieldError, err,
		)
		return false
	}
	return true
}

// ListInvitations lists the caller's family invitations. An empty filter
// means pending only; StatusFilterAll returns every state.
func (s *InvitationService) ListInvitations(ctx context.Context, p models.Principal, filter string) ([]models.Invitation, error) {
	if err := requireParent(p); err != nil {
		return nil, err
	}

	var status *models.InvitationStatus
	switch filter = strings.ToLower(strings.TrimSpace(filter)); filter {
	case "":
		pending := models.InvitationPending
		status = &pending
	case StatusFilterAll:
	default:
		st := models.InvitationStatus(filter)
		if !st.Valid() {
			return nil, validation.ValidationError{Field: "status", Message: "status must be all, pending, redeemed or revoked"}
		}
		status = &st
	}

	invitations, err := s.invitations.GetFamilyInvitations(ctx, p.FamilyID, status)
	if err != nil {
		return nil, err
	}
	if status == nil || *status != models.InvitationPending {
		return invitations, nil
	}

	// Expired codes stay pending until the sweeper runs but are no longer usable
	now := s.now()
	usable := invitations[:0]
	for _, inv := range invitations {
		if inv.IsRedeemable(now) {
			usable = append(usable, inv)
		}
	}
	return usable, nil
}

// RevokeInvitation cancels a pending invitation of the caller's family
func (s *InvitationService) RevokeInvitation(ctx context.Context, p models.Principal, invitationID int64) error {
	if err := requireParent(p); err != nil {
		return err
	}

	ok, err := s.invitations.RevokeInvitation(ctx, invitationID, p.FamilyID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvitationNotFound
	}

	s.logger.InfoContext(ctx, "invitation revoked",
		log.FieldFamilyID, p.FamilyID,
		log.FieldInvitationID, invitationID,
		log.FieldParentID, p.ID,
	)
	return nil
}

// ExpireStale revokes every pending invitation past its expiry
func (s *InvitationService) ExpireStale(ctx context.Context) (int64, error) {
	return s.invitations.RevokeExpired(ctx, s.now())
}
