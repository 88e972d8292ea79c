package identity_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/sharedrop/identity"
)

func testStore(t *testing.T) *identity.Store {
	t.Helper()
	digest, err := identity.HashPassword("admin123")
	require.NoError(t, err)
	store, err := identity.NewStore([]identity.Identity{
		{Username: "admin", PasswordDigest: digest, Role: identity.RoleAdmin},
	})
	require.NoError(t, err)
	return store
}

func TestAuthenticate(t *testing.T) {
	store := testStore(t)

	id, err := store.Authenticate("admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", id.Username)
	assert.Equal(t, identity.RoleAdmin, id.Role)
}

func TestAuthenticateUniformFailure(t *testing.T) {
	store := testStore(t)

	// Wrong password and unknown username must be indistinguishable.
	_, err1 := store.Authenticate("admin", "wrong")
	_, err2 := store.Authenticate("nobody", "admin123")
	assert.ErrorIs(t, err1, identity.ErrInvalidCredentials)
	assert.ErrorIs(t, err2, identity.ErrInvalidCredentials)
	assert.Equal(t, err1, err2)
}

func TestNewStoreRejectsDuplicates(t *testing.T) {
	digest, err := identity.HashPassword("pw")
	require.NoError(t, err)
	_, err = identity.NewStore([]identity.Identity{
		{Username: "a", PasswordDigest: digest, Role: identity.RoleAdmin},
		{Username: "a", PasswordDigest: digest, Role: identity.RoleGuest},
	})
	assert.Error(t, err)
}

func TestNewStoreRejectsUnknownRole(t *testing.T) {
	_, err := identity.NewStore([]identity.Identity{
		{Username: "a", PasswordDigest: "x", Role: identity.Role("root")},
	})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"username": "admin", "password": "admin123", "role": "admin"},
		{"username": "user", "password": "user123", "role": "guest"}
	]`), 0o600))

	store, err := identity.LoadFile(path)
	require.NoError(t, err)

	id, err := store.Authenticate("user", "user123")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleGuest, id.Role)

	_, err = store.Authenticate("user", "admin123")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestDefaultStore(t *testing.T) {
	store, err := identity.DefaultStore()
	require.NoError(t, err)

	id, err := store.Authenticate("admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, id.Role)

	id, err = store.Authenticate("user", "user123")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleGuest, id.Role)
}
