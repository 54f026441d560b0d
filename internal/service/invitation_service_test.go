package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piggybank/internal/apperr"
	"piggybank/internal/credentials"
	"piggybank/internal/events"
	"piggybank/internal/models"
)

func TestInvitationLimitAndRevoke(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")

	a, err := env.invitations.CreateInvitation(ctx, owner, nil)
	require.NoError(t, err)
	assert.Len(t, a.Invitation.Code, credentials.InviteCodeLength)
	assert.Equal(t, models.InvitationPending, a.Invitation.Status)
	assert.False(t, a.EmailSent)

	b, err := env.invitations.CreateInvitation(ctx, owner, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Invitation.Code, b.Invitation.Code)

	_, err = env.invitations.CreateInvitation(ctx, owner, nil)
	require.ErrorIs(t, err, ErrInvitationLimitReached)

	require.NoError(t, env.invitations.RevokeInvitation(ctx, owner, a.Invitation.ID))
	err = env.invitations.RevokeInvitation(ctx, owner, a.Invitation.ID)
	require.ErrorIs(t, err, ErrInvitationNotFound, "revoking twice")

	d, err := env.invitations.CreateInvitation(ctx, owner, nil)
	require.NoError(t, err)

	pending, err := env.invitations.ListInvitations(ctx, owner, "")
	require.NoError(t, err)
	ids := []int64{}
	for _, inv := range pending {
		ids = append(ids, inv.ID)
	}
	assert.ElementsMatch(t, []int64{b.Invitation.ID, d.Invitation.ID}, ids)

	all, err := env.invitations.ListInvitations(ctx, owner, StatusFilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	revoked, err := env.invitations.ListInvitations(ctx, owner, "revoked")
	require.NoError(t, err)
	require.Len(t, revoked, 1)
	assert.Equal(t, a.Invitation.ID, revoked[0].ID)
	assert.NotNil(t, revoked[0].RevokedAt)

	_, err = env.invitations.ListInvitations(ctx, owner, "expired")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assert.Len(t, env.events.OfType(events.InvitationCreated), 3)
}

func TestInvitationScopedToFamily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")
	outsider := env.registerFamily(t, "Joneses", "jo_jones")

	created, err := env.invitations.CreateInvitation(ctx, owner, nil)
	require.NoError(t, err)

	err = env.invitations.RevokeInvitation(ctx, outsider, created.Invitation.ID)
	assert.ErrorIs(t, err, ErrInvitationNotFound)

	theirs, err := env.invitations.ListInvitations(ctx, outsider, StatusFilterAll)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	env.createChild(t, owner, "ana_smith", "1234")
	child, err := env.auth.LoginChild(ctx, "ana_smith", "1234")
	require.NoError(t, err)
	_, err = env.invitations.CreateInvitation(ctx, child.Principal, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestInvitationEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")

	_, err := env.invitations.CreateInvitation(ctx, owner, strPtr("not-an-email"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	created, err := env.invitations.CreateInvitation(ctx, owner, strPtr("  pat@example.com "))
	require.NoError(t, err)
	assert.True(t, created.EmailSent)
	require.Len(t, env.mailer.sent, 1)
	msg := env.mailer.sent[0]
	assert.Equal(t, "pat@example.com", msg.To)
	assert.Equal(t, created.Invitation.Code, msg.Code)
	assert.Equal(t, "Smiths", msg.FamilyName)
	assert.Equal(t, "Parent sam_smith", msg.InviterName)

	env.mailer.err = errors.New("ses unavailable")
	created, err = env.invitations.CreateInvitation(ctx, owner, strPtr("lee@example.com"))
	require.NoError(t, err, "delivery failure must not undo the invitation")
	assert.False(t, created.EmailSent)

	// The published payload never carries the code itself
	for _, event := range env.events.OfType(events.InvitationCreated) {
		assert.NotContains(t, string(event.Payload), created.Invitation.Code)
	}
}

func TestInvitationExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")

	env.invitations.now = func() time.Time { return time.Now().UTC().Add(-8 * 24 * time.Hour) }
	stale, err := env.invitations.CreateInvitation(ctx, owner, nil)
	require.NoError(t, err)
	_, err = env.invitations.CreateInvitation(ctx, owner, nil)
	require.NoError(t, err)
	env.invitations.now = SystemClock

	// Expired codes no longer count against the limit or show as pending
	fresh, err := env.invitations.CreateInvitation(ctx, owner, nil)
	require.NoError(t, err)

	pending, err := env.invitations.ListInvitations(ctx, owner, "")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fresh.Invitation.ID, pending[0].ID)

	explicit, err := env.invitations.ListInvitations(ctx, owner, "pending")
	require.NoError(t, err)
	require.Len(t, explicit, 1, "an explicit pending filter hides expired codes too")
	assert.Equal(t, fresh.Invitation.ID, explicit[0].ID)

	all, err := env.invitations.ListInvitations(ctx, owner, "all")
	require.NoError(t, err)
	assert.Len(t, all, 3, "the audit view still shows expired codes")

	_, err = env.membership.RedeemInvitation(ctx, RedeemInput{
		Code:     stale.Invitation.Code,
		Username: "pat_smith",
		Name:     "Pat",
		Password: "another-secret",
	})
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	result, err := env.sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Invitations)

	revoked, err := env.invitations.ListInvitations(ctx, owner, "revoked")
	require.NoError(t, err)
	assert.Len(t, revoked, 2)
}

func TestRedeemInvitationJoinsFamily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")

	created, err := env.invitations.CreateInvitation(ctx, owner, nil)
	require.NoError(t, err)

	joined, err := env.membership.RedeemInvitation(ctx, RedeemInput{
		Code:     " " + strings.ToLower(created.Invitation.Code) + " ",
		Username: "pat_smith",
		Name:     "Pat Smith",
		Password: "another-secret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, joined.Token)
	require.NotNil(t, joined.Parent)
	assert.Equal(t, owner.FamilyID, joined.Parent.FamilyID)
	assert.Equal(t, models.RoleCoParent, joined.Parent.Role)

	coParent, err := env.auth.Authenticate(ctx, joined.Token)
	require.NoError(t, err)
	assert.Equal(t, joined.Parent.ID, coParent.ID)

	// Co-parents hold the same powers as the owner
	ana := env.createChild(t, coParent, "ana_smith", "1234")
	_, err = env.apply(t, coParent, ana.ID, models.TransactionCredit, "2.00")
	require.NoError(t, err)

	overview, err := env.families.GetFamily(ctx, owner)
	require.NoError(t, err)
	require.Len(t, overview.Parents, 2)
	assert.Equal(t, models.RoleOwner, overview.Parents[0].Role)

	redeemed, err := env.invitations.ListInvitations(ctx, owner, "redeemed")
	require.NoError(t, err)
	require.Len(t, redeemed, 1)
	require.NotNil(t, redeemed[0].RedeemedByParentID)
	assert.Equal(t, joined.Parent.ID, *redeemed[0].RedeemedByParentID)

	_, err = env.membership.RedeemInvitation(ctx, RedeemInput{
		Code:     created.Invitation.Code,
		Username: "lee_smith",
		Name:     "Lee",
		Password: "another-secret",
	})
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode, "codes are single use")

	assert.Len(t, env.events.OfType(events.MemberJoined), 1)
}

func TestRedeemWithTakenUsernameKeepsCodePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")

	created, err := env.invitations.CreateInvitation(ctx, owner, nil)
	require.NoError(t, err)

	_, err = env.membership.RedeemInvitation(ctx, RedeemInput{
		Code:     created.Invitation.Code,
		Username: "sam_smith",
		Name:     "Another Sam",
		Password: "another-secret",
	})
	require.ErrorIs(t, err, ErrUsernameTaken)

	pending, err := env.invitations.ListInvitations(ctx, owner, "")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, created.Invitation.ID, pending[0].ID)

	_, err = env.membership.RedeemInvitation(ctx, RedeemInput{
		Code:     created.Invitation.Code,
		Username: "pat_smith",
		Name:     "Pat",
		Password: "another-secret",
	})
	require.NoError(t, err)
}

func TestRedeemRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    RedeemInput
		field string
	}{
		{"empty code", RedeemInput{Code: "  ", Username: "pat_smith", Name: "Pat", Password: "another-secret"}, "invite_code"},
		{"bad username", RedeemInput{Code: "ABCDEFGHJK", Username: "p!", Name: "Pat", Password: "another-secret"}, "username"},
		{"short password", RedeemInput{Code: "ABCDEFGHJK", Username: "pat_smith", Name: "Pat", Password: "short"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.membership.RedeemInvitation(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	_, err := env.membership.RedeemInvitation(ctx, RedeemInput{Code: "ABCDEFGHJK", Username: "pat_smith", Name: "Pat", Password: "another-secret"})
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestConcurrentRedeemHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")

	created, err := env.invitations.CreateInvitation(ctx, owner, nil)
	require.NoError(t, err)

	const racers = 5
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.membership.RedeemInvitation(ctx, RedeemInput{
				Code:     created.Invitation.Code,
				Username: "racer_" + string(rune('a'+i)),
				Name:     "Racer",
				Password: "another-secret",
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
	}
	assert.Equal(t, 1, winners)

	overview, err := env.families.GetFamily(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, overview.Parents, 2)
}

func TestConcurrentCreateRespectsLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")

	const callers = 6
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.invitations.CreateInvitation(ctx, owner, nil)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrInvitationLimitReached)
	}
	assert.Equal(t, models.MaxPendingInvitations, created)
}
