package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/knw/internal/storage/postgres"
	"github.com/cory-johannsen/knw/internal/testutil"
)

func TestAccountRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testutil.NewPool(t))
	name := uniqueName("gm")

	acct, err := repo.Create(ctx, name, "hunter22")
	require.NoError(t, err)
	assert.Equal(t, postgres.RolePlayer, acct.Role)

	_, err = repo.Create(ctx, name, "other")
	assert.ErrorIs(t, err, postgres.ErrAccountExists)

	_, err = repo.Authenticate(ctx, name, "wrong")
	assert.ErrorIs(t, err, postgres.ErrInvalidCredentials)
	_, err = repo.Authenticate(ctx, uniqueName("nobody"), "x")
	assert.ErrorIs(t, err, postgres.ErrAccountNotFound)

	require.NoError(t, repo.SetRole(ctx, acct.ID, postgres.RoleGM))
	assert.ErrorIs(t, repo.SetRole(ctx, acct.ID, "king"), postgres.ErrInvalidRole)
	assert.ErrorIs(t, repo.SetRole(ctx, -1, postgres.RoleGM), postgres.ErrAccountNotFound)

	authed, err := repo.Authenticate(ctx, name, "hunter22")
	require.NoError(t, err)
	assert.True(t, authed.User().GM)

	assert.ErrorIs(t, repo.ChangePassword(ctx, name, "wrong", "x"), postgres.ErrInvalidCredentials)
	require.NoError(t, repo.ChangePassword(ctx, name, "hunter22", "longbow7"))
	_, err = repo.Authenticate(ctx, name, "hunter22")
	assert.ErrorIs(t, err, postgres.ErrInvalidCredentials)
	_, err = repo.Authenticate(ctx, name, "longbow7")
	assert.NoError(t, err)
}
