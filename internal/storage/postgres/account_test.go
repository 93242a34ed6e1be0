package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("longbow7")
	require.NoError(t, err)
	assert.NotEqual(t, "longbow7", hash)
	assert.True(t, CheckPassword("longbow7", hash))
	assert.False(t, CheckPassword("longbow8", hash))
	assert.False(t, CheckPassword("longbow7", "not-a-hash"))
}

func TestValidRole(t *testing.T) {
	for role, want := range map[string]bool{
		RolePlayer: true, RoleGM: true, RoleAdmin: true,
		"": false, "GM": false, "king": false,
	} {
		assert.Equal(t, want, ValidRole(role), "role %q", role)
	}
}

func TestAccount_User(t *testing.T) {
	for role, gm := range map[string]bool{RolePlayer: false, RoleGM: true, RoleAdmin: true} {
		u := Account{ID: 42, Username: "brenna", Role: role}.User()
		assert.Equal(t, "42", u.ID)
		assert.Equal(t, "brenna", u.Name)
		assert.Equal(t, gm, u.GM, "role %s", role)
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	dup := &pgconn.PgError{Code: uniqueViolation}
	assert.True(t, isDuplicateKeyError(dup))
	assert.True(t, isDuplicateKeyError(errors.Join(errors.New("insert"), dup)))
	assert.False(t, isDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isDuplicateKeyError(errors.New("23505")))
	assert.False(t, isDuplicateKeyError(nil))
}

func TestPropertyPasswordRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// bcrypt rejects input over 72 bytes
		password := rapid.StringMatching(`[a-zA-Z0-9!@#$%^&*]{1,64}`).Draw(t, "password")
		other := rapid.StringMatching(`[a-zA-Z0-9]{1,64}`).Draw(t, "other")
		hash, err := HashPassword(password)
		if err != nil {
			t.Fatalf("HashPassword(%q): %v", password, err)
		}
		if !CheckPassword(password, hash) {
			t.Fatalf("hash of %q does not verify", password)
		}
		if other != password && CheckPassword(other, hash) {
			t.Fatalf("%q verified against the hash of %q", other, password)
		}
	})
}
