// Package identity holds the registered identities and verifies passwords
// against their stored bcrypt digests. The identity set is fixed at process
// start; there is no mutation API.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for both an unknown username and a
// password mismatch. The two cases are deliberately indistinguishable to the
// caller to prevent username enumeration.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Role is the coarse permission class gating file-mutating operations.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleGuest Role = "guest"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleGuest
}

// Identity is a registered principal. Immutable after bootstrap.
type Identity struct {
	Username       string `json:"username"`
	PasswordDigest string `json:"password_digest"`
	Role           Role   `json:"role"`
}

// Store is a read-only set of identities keyed by username.
type Store struct {
	byName map[string]Identity
}

// NewStore builds a Store from the given identities. Usernames must be
// unique and roles must be valid.
func NewStore(identities []Identity) (*Store, error) {
	byName := make(map[string]Identity, len(identities))
	for _, id := range identities {
		if id.Username == "" {
			return nil, errors.New("identity with empty username")
		}
		if !id.Role.Valid() {
			return nil, fmt.Errorf("identity %q has unknown role %q", id.Username, id.Role)
		}
		if _, ok := byName[id.Username]; ok {
			return nil, fmt.Errorf("duplicate username %q", id.Username)
		}
		byName[id.Username] = id
	}
	return &Store{byName: byName}, nil
}

// Lookup returns the identity registered under username.
func (s *Store) Lookup(username string) (*Identity, error) {
	id, ok := s.byName[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return &id, nil
}

// Authenticate verifies username and password against the store. Unknown
// usernames and wrong passwords fail identically with ErrInvalidCredentials.
func (s *Store) Authenticate(username, password string) (*Identity, error) {
	id, ok := s.byName[username]
	if !ok {
		// Burn a bcrypt comparison anyway so the unknown-username path
		// takes roughly as long as a digest mismatch.
		_ = bcrypt.CompareHashAndPassword(dummyDigest, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(id.PasswordDigest), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &id, nil
}

// dummyDigest is a digest of an unguessable value, used to equalise timing
// for unknown usernames.
var dummyDigest = func() []byte {
	d, err := bcrypt.GenerateFromPassword([]byte("sharedrop-timing-pad"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return d
}()

// HashPassword produces a bcrypt digest suitable for Identity.PasswordDigest.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(digest), nil
}

// LoadFile reads a JSON array of identities from path and builds a Store.
// Each element may carry either a password_digest or a plaintext password,
// in which case the digest is computed at load time.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading users file: %w", err)
	}
	var entries []struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Digest   string `json:"password_digest"`
		Role     Role   `json:"role"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing users file: %w", err)
	}
	identities := make([]Identity, 0, len(entries))
	for _, e := range entries {
		digest := e.Digest
		if digest == "" {
			if e.Password == "" {
				return nil, fmt.Errorf("user %q has neither password nor password_digest", e.Username)
			}
			digest, err = HashPassword(e.Password)
			if err != nil {
				return nil, err
			}
		}
		identities = append(identities, Identity{
			Username:       e.Username,
			PasswordDigest: digest,
			Role:           e.Role,
		})
	}
	return NewStore(identities)
}

// DefaultStore returns the built-in bootstrap identities: admin/admin123
// with the admin role and user/user123 with the guest role.
func DefaultStore() (*Store, error) {
	adminDigest, err := HashPassword("admin123")
	if err != nil {
		return nil, err
	}
	guestDigest, err := HashPassword("user123")
	if err != nil {
		return nil, err
	}
	return NewStore([]Identity{
		{Username: "admin", PasswordDigest: adminDigest, Role: RoleAdmin},
		{Username: "user", PasswordDigest: guestDigest, Role: RoleGuest},
	})
}
