// Package session keeps admin sessions in the key-value store and
// gates mutating routes on them.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/toya-mimura/notes/pkg/core/domain"
	"github.com/toya-mimura/notes/pkg/ports"
)

// TTL is measured from creation and not refreshed on access.
const TTL = 7 * 24 * time.Hour

const keyPrefix = "session:"

type Store struct {
	kv  ports.KeyValueStore
	ttl time.Duration
}

func NewStore(kv ports.KeyValueStore) *Store {
	return &Store{kv: kv, ttl: TTL}
}

// Create stores the identity under a fresh opaque token. The token is
// a trust boundary: 32 bytes from crypto/rand, hex encoded.
func (s *Store) Create(ctx context.Context, identity domain.Identity) (string, error) {
	if s.kv == nil {
		return "", errors.New("session store unavailable: no key-value store configured")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	payload, err := json.Marshal(identity)
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, keyPrefix+token, string(payload), s.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Lookup resolves a token to its identity, or nil when the session is
// missing or expired.
func (s *Store) Lookup(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" || s.kv == nil {
		return nil, nil
	}
	payload, ok, err := s.kv.Get(ctx, keyPrefix+token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var identity domain.Identity
	if err := json.Unmarshal([]byte(payload), &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *Store) Destroy(ctx context.Context, token string) error {
	if token == "" || s.kv == nil {
		return nil
	}
	return s.kv.Delete(ctx, keyPrefix+token)
}

var _ ports.SessionStore = (*Store)(nil)

// Gate authorizes mutating admin routes: a live session whose email
// matches the configured admin. With no admin configured the gate
// denies everything; a single-admin service with no admin set up has
// no admins, and failing open would admit any Google account.
type Gate struct {
	sessions   ports.SessionStore
	adminEmail string
}

func NewGate(sessions ports.SessionStore, adminEmail string) *Gate {
	return &Gate{sessions: sessions, adminEmail: adminEmail}
}

// Authorize resolves the token and checks it against the allow-list.
// Returns domain.ErrUnauthorized for a missing/expired session and
// domain.ErrForbidden for a valid session with the wrong identity.
func (g *Gate) Authorize(ctx context.Context, token string) (*domain.Identity, error) {
	identity, err := g.sessions.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, domain.ErrUnauthorized
	}
	if g.adminEmail == "" || identity.Email != g.adminEmail {
		return nil, domain.ErrForbidden
	}
	return identity, nil
}

// Allows reports whether the email would pass the allow-list, for use
// before a session exists (OAuth callback).
func (g *Gate) Allows(email string) bool {
	return g.adminEmail != "" && email == g.adminEmail
}
