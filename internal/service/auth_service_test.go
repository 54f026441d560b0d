package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piggybank/internal/apperr"
	"piggybank/internal/models"
	"piggybank/internal/security"
)

func TestRegisterFamily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.auth.RegisterFamily(ctx, RegisterInput{
		FamilyName: " Smiths ",
		ParentName: "Sam Smith",
		Username:   "sam_smith",
		Password:   "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "Smiths", result.Family.Name)
	assert.Equal(t, models.RoleOwner, result.Parent.Role)
	assert.Equal(t, models.RoleOwner, result.Principal.Role)
	assert.Equal(t, result.Family.ID, result.Principal.FamilyID)

	principal, err := env.auth.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Parent.ID, principal.ID)
	assert.Equal(t, models.PrincipalParent, principal.Kind)

	_, err = env.auth.RegisterFamily(ctx, RegisterInput{
		FamilyName: "Other Smiths",
		ParentName: "Sam Again",
		Username:   "sam_smith",
		Password:   "correct-horse",
	})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterFamilyValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing family name", RegisterInput{ParentName: "Sam", Username: "sam_smith", Password: "correct-horse"}},
		{"missing parent name", RegisterInput{FamilyName: "Smiths", Username: "sam_smith", Password: "correct-horse"}},
		{"short username", RegisterInput{FamilyName: "Smiths", ParentName: "Sam", Username: "sa", Password: "correct-horse"}},
		{"short password", RegisterInput{FamilyName: "Smiths", ParentName: "Sam", Username: "sam_smith", Password: "horse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.RegisterFamily(context.Background(), tt.in)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")
	env.createChild(t, owner, "ana_smith", "1234")

	parent, err := env.auth.LoginParent(ctx, "sam_smith", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, parent.Parent.ID)

	child, err := env.auth.LoginChild(ctx, "ana_smith", "1234")
	require.NoError(t, err)
	assert.Equal(t, models.PrincipalChild, child.Principal.Kind)
	assert.Equal(t, owner.FamilyID, child.Principal.FamilyID)

	failures := []struct {
		name  string
		login func() error
	}{
		{"wrong password", func() error { _, err := env.auth.LoginParent(ctx, "sam_smith", "wrong-horse"); return err }},
		{"unknown parent", func() error { _, err := env.auth.LoginParent(ctx, "nobody", "correct-horse"); return err }},
		{"wrong pin", func() error { _, err := env.auth.LoginChild(ctx, "ana_smith", "4321"); return err }},
		{"malformed pin", func() error { _, err := env.auth.LoginChild(ctx, "ana_smith", "12"); return err }},
		{"unknown child", func() error { _, err := env.auth.LoginChild(ctx, "nobody", "1234"); return err }},
		{"parent as child", func() error { _, err := env.auth.LoginChild(ctx, "sam_smith", "1234"); return err }},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.login(), ErrInvalidCredentials)
		})
	}
}

func TestChildLoginLocksAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")
	env.createChild(t, owner, "ana_smith", "7391")
	env.createChild(t, owner, "ben_smith", "1234")

	for pin := 0; pin < testMaxFailures; pin++ {
		_, err := env.auth.LoginChild(ctx, "ana_smith", fmt.Sprintf("%04d", pin))
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// The right PIN is refused while the account is locked
	_, err := env.auth.LoginChild(ctx, "ana_smith", "7391")
	require.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))
	var lockout *security.LockoutError
	require.ErrorAs(t, err, &lockout)
	assert.Positive(t, lockout.RetryAfter)

	_, err = env.auth.LoginChild(ctx, "ANA_SMITH", "7391")
	assert.ErrorIs(t, err, ErrTooManyAttempts, "case variants share the lock")

	_, err = env.auth.LoginChild(ctx, "ben_smith", "1234")
	assert.NoError(t, err, "other children are unaffected")

	_, err = env.auth.LoginParent(ctx, "sam_smith", "correct-horse")
	assert.NoError(t, err, "parents have their own counter")
}

func TestLoginLockoutCoversUnknownUsernames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < testMaxFailures; i++ {
		_, err := env.auth.LoginParent(ctx, "ghost", "wrong-horse")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := env.auth.LoginParent(ctx, "ghost", "wrong-horse")
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestSuccessfulLoginResetsFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")
	env.createChild(t, owner, "ana_smith", "7391")

	for round := 0; round < 2; round++ {
		for i := 0; i < testMaxFailures-1; i++ {
			_, err := env.auth.LoginChild(ctx, "ana_smith", "0000")
			require.ErrorIs(t, err, ErrInvalidCredentials)
		}
		_, err := env.auth.LoginChild(ctx, "ana_smith", "7391")
		require.NoError(t, err, "round %d", round)
	}
}

func TestUsernameNamespacesAreSeparate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")

	// A child may share a login name with a parent
	env.createChild(t, owner, "sam_smith", "1234")

	_, err := env.auth.LoginParent(ctx, "sam_smith", "correct-horse")
	require.NoError(t, err)
	_, err = env.auth.LoginChild(ctx, "sam_smith", "1234")
	require.NoError(t, err)
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFamily(t, "Smiths", "sam_smith")

	first, err := env.auth.LoginParent(ctx, "sam_smith", "correct-horse")
	require.NoError(t, err)
	second, err := env.auth.LoginParent(ctx, "sam_smith", "correct-horse")
	require.NoError(t, err)

	principal, err := env.auth.Authenticate(ctx, first.Token)
	require.NoError(t, err)
	require.NoError(t, env.auth.Logout(ctx, principal))

	_, err = env.auth.Authenticate(ctx, first.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	_, err = env.auth.Authenticate(ctx, second.Token)
	assert.NoError(t, err, "other sessions stay valid")

	_, err = env.auth.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")
	env.createChild(t, owner, "ana_smith", "1234")

	profile, err := env.auth.Me(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "Smiths", profile.Family.Name)
	require.NotNil(t, profile.Parent)
	assert.Nil(t, profile.Child)

	child, err := env.auth.LoginChild(ctx, "ana_smith", "1234")
	require.NoError(t, err)
	profile, err = env.auth.Me(ctx, child.Principal)
	require.NoError(t, err)
	require.NotNil(t, profile.Child)
	assert.Equal(t, "ana_smith", profile.Child.Username)
}

func TestSweeperRemovesExpiredSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFamily(t, "Smiths", "sam_smith")

	result, err := env.sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Sessions)

	env.auth.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	result, err = env.sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Sessions)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.sweeper.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
