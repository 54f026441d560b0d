package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piggybank/internal/apperr"
	"piggybank/internal/models"
)

func TestCreateChild(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")

	age := 9
	created, err := env.families.CreateChild(ctx, owner, CreateChildInput{
		Username: "ana_smith",
		Name:     "Ana",
		PIN:      "1234",
		Avatar:   "🐷",
		Age:      &age,
	})
	require.NoError(t, err)
	assert.Empty(t, created.GeneratedPIN, "chosen PINs are never echoed")
	assert.Equal(t, owner.FamilyID, created.Child.FamilyID)
	assert.True(t, created.Child.Balance.IsZero())
	require.NotNil(t, created.Child.Age)
	assert.Equal(t, 9, *created.Child.Age)

	_, err = env.families.CreateChild(ctx, owner, CreateChildInput{Username: "ana_smith", Name: "Other Ana", PIN: "9999"})
	require.ErrorIs(t, err, ErrUsernameTaken)

	generated, err := env.families.CreateChild(ctx, owner, CreateChildInput{Name: "Ben"})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{4}$`), generated.GeneratedPIN)
	assert.Regexp(t, regexp.MustCompile(`^[a-z]+_[a-z]+_[0-9]{2}$`), generated.Child.Username)

	login, err := env.auth.LoginChild(ctx, generated.Child.Username, generated.GeneratedPIN)
	require.NoError(t, err)
	assert.Equal(t, generated.Child.ID, login.Principal.ID)

	children, err := env.families.ListChildren(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestCreateChildValidation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerFamily(t, "Smiths", "sam_smith")

	zero, old := 0, 19
	tests := []struct {
		name string
		in   CreateChildInput
	}{
		{"missing name", CreateChildInput{PIN: "1234"}},
		{"letters in pin", CreateChildInput{Name: "Ana", PIN: "12ab"}},
		{"five digit pin", CreateChildInput{Name: "Ana", PIN: "12345"}},
		{"bad username", CreateChildInput{Name: "Ana", Username: "ana smith", PIN: "1234"}},
		{"age zero", CreateChildInput{Name: "Ana", PIN: "1234", Age: &zero}},
		{"age too high", CreateChildInput{Name: "Ana", PIN: "1234", Age: &old}},
		{"long avatar", CreateChildInput{Name: "Ana", PIN: "1234", Avatar: "abcdefghijk"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.families.CreateChild(context.Background(), owner, tt.in)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestUpdateChild(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")
	ana := env.createChild(t, owner, "ana_smith", "1234")
	_, err := env.apply(t, owner, ana.ID, models.TransactionCredit, "7.25")
	require.NoError(t, err)

	name, age := "Ana Banana", 10
	updated, err := env.families.UpdateChild(ctx, owner, ana.ID, models.ChildUpdate{Name: &name, Age: &age})
	require.NoError(t, err)
	assert.Equal(t, "Ana Banana", updated.Name)
	assert.Equal(t, 10, *updated.Age)
	assert.Equal(t, "7.25", updated.Balance.String(), "profile edits leave the balance alone")

	outsider := env.registerFamily(t, "Joneses", "jo_jones")
	_, err = env.families.UpdateChild(ctx, outsider, ana.ID, models.ChildUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrChildNotFound)

	_, err = env.families.GetChild(ctx, outsider, ana.ID)
	assert.ErrorIs(t, err, ErrChildNotFound)

	blank := "  "
	_, err = env.families.UpdateChild(ctx, owner, ana.ID, models.ChildUpdate{Name: &blank})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestChildCannotManageFamily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerFamily(t, "Smiths", "sam_smith")
	ana := env.createChild(t, owner, "ana_smith", "1234")

	login, err := env.auth.LoginChild(ctx, "ana_smith", "1234")
	require.NoError(t, err)
	child := login.Principal

	_, err = env.families.GetFamily(ctx, child)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.families.ListChildren(ctx, child)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.families.CreateChild(ctx, child, CreateChildInput{Name: "Sneaky", PIN: "1111"})
	assert.ErrorIs(t, err, ErrForbidden)
	name := "Queen Ana"
	_, err = env.families.UpdateChild(ctx, child, ana.ID, models.ChildUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)
}
