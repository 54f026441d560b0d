package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"piggybank/internal/database"
	"piggybank/internal/events"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/security"
)

const (
	testSecret      = "test-secret-that-is-at-least-32-bytes-long"
	testMaxFailures = 5
)

type testEnv struct {
	db          *database.DB
	events      *events.Recorder
	mailer      *fakeMailer
	auth        *AuthService
	families    *FamilyService
	ledger      *LedgerService
	invitations *InvitationService
	membership  *MembershipService
	sweeper     *Sweeper
}

type fakeMailer struct {
	enabled bool
	sent    []InvitationEmail
	err     error
}

func (m *fakeMailer) IsEnabled() bool { return m.enabled }

func (m *fakeMailer) SendInvitationEmail(_ context.Context, msg InvitationEmail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "piggybank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	logger := log.Nop()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	tokens := security.NewTokenIssuer(testSecret, time.Hour)
	recorder := &events.Recorder{}
	mailer := &fakeMailer{enabled: true}

	auth := NewAuthService(db, tokens, hasher, hasher, security.NewLoginLockout(testMaxFailures, time.Minute), logger)
	invitations := NewInvitationService(db, mailer, recorder, 7*24*time.Hour, logger)

	return &testEnv{
		db:          db,
		events:      recorder,
		mailer:      mailer,
		auth:        auth,
		families:    NewFamilyService(db, hasher, logger),
		ledger:      NewLedgerService(db, recorder, 5, logger),
		invitations: invitations,
		membership:  NewMembershipService(db, auth, hasher, recorder, logger),
		sweeper:     NewSweeper(auth, invitations, time.Hour, logger),
	}
}

// registerFamily creates a family and returns its owner's principal
func (e *testEnv) registerFamily(t *testing.T, familyName, username string) models.Principal {
	t.Helper()
	result, err := e.auth.RegisterFamily(context.Background(), RegisterInput{
		FamilyName: familyName,
		ParentName: "Parent " + username,
		Username:   username,
		Password:   "correct-horse",
	})
	require.NoError(t, err)
	return result.Principal
}

func (e *testEnv) createChild(t *testing.T, owner models.Principal, username, pin string) *models.Child {
	t.Helper()
	created, err := e.families.CreateChild(context.Background(), owner, CreateChildInput{
		Username: username,
		Name:     "Child " + username,
		PIN:      pin,
	})
	require.NoError(t, err)
	return created.Child
}

func (e *testEnv) apply(t *testing.T, p models.Principal, childID int64, txType models.TransactionType, amount string) (*models.Transaction, error) {
	t.Helper()
	money, err := models.ParseMoney(amount)
	require.NoError(t, err)
	return e.ledger.ApplyTransaction(context.Background(), p, ApplyInput{
		ChildID: childID,
		Type:    txType,
		Amount:  money,
	})
}

func strPtr(s string) *string { return &s }
