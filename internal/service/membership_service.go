package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"piggybank/internal/credentials"
	"piggybank/internal/database"
	"piggybank/internal/events"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/repository"
	"piggybank/internal/security"
	"piggybank/internal/validation"
)

// RedeemInput is the new co-parent's account plus the code they received
type RedeemInput struct {
	Code     string
	Username string
	Name     string
	Password string
}

type memberJoinedPayload struct {
	ParentID     int64  `json:"parent_id"`
	InvitationID int64  `json:"invitation_id"`
	Username     string `json:"username"`
}

// MembershipService turns a redeemed invitation into a co-parent account.
// Consuming the code and creating the parent commit as one unit.
type MembershipService struct {
	db          *database.DB
	parents     *repository.ParentRepository
	invitations *repository.InvitationRepository
	auth        *AuthService
	passwords   security.Hasher
	publisher   events.Publisher
	logger      *log.Logger
	now         Clock
}

// NewMembershipService creates a new membership service
func NewMembershipService(db *database.DB, auth *AuthService, passwords security.Hasher, publisher events.Publisher, logger *log.Logger) *MembershipService {
	return &MembershipService{
		db:          db,
		parents:     repository.NewParentRepository(db),
		invitations: repository.NewInvitationRepository(db),
		auth:        auth,
		passwords:   passwords,
		publisher:   publisher,
		logger:      logger.WithComponent(log.ComponentMembership),
		now:         SystemClock,
	}
}

// RedeemInvitation joins a new co-parent to the invitation's family and signs
// them in. Of concurrent redemptions of one code exactly one succeeds; the
// rest fail with ErrInvalidOrExpiredCode.
func (s *MembershipService) RedeemInvitation(ctx context.Context, in RedeemInput) (*AuthResult, error) {
	code := credentials.NormalizeInviteCode(in.Code)
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)

	if code == "" {
		return nil, validation.ValidationError{Field: "invite_code", Message: "invite code is required"}
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validation.ValidateName("name", in.Name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	passwordHash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	var parent *models.Parent
	var invitation *models.Invitation

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		invitations := s.invitations.WithTx(tx)

		claimed, err := invitations.ClaimInvitation(ctx, code, now)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrInvalidOrExpiredCode
		}

		invitation, err = invitations.GetInvitationByCode(ctx, code)
		if err != nil {
			return err
		}
		if invitation == nil {
			return ErrInvalidOrExpiredCode
		}

		parent, err = s.parents.WithTx(tx).CreateParent(ctx, invitation.FamilyID, in.Username, in.Name, passwordHash, models.RoleCoParent, now)
		if errors.Is(err, repository.ErrDuplicate) {
			// Rolling back leaves the code pending for another attempt
			return ErrUsernameTaken
		}
		if err != nil {
			return err
		}

		return invitations.SetRedeemedBy(ctx, invitation.ID, parent.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "co-parent joined family",
		log.FieldFamilyID, parent.FamilyID,
		log.FieldParentID, parent.ID,
		log.FieldInvitationID, invitation.ID,
	)

	publish(ctx, s.publisher, s.logger, events.MemberJoined, parent.FamilyID, now, memberJoinedPayload{
		ParentID:     parent.ID,
		InvitationID: invitation.ID,
		Username:     parent.Username,
	})

	result, err := s.auth.IssueSession(ctx, parentPrincipal(parent))
	if err != nil {
		return nil, err
	}
	result.Parent = parent
	return result, nil
}
