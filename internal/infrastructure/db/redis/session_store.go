package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civicore/community-api/internal/core/domain"
)

// Key layout:
//
//	session:<token>            -> JSON session document, TTL = session TTL
//	identity_sessions:<id>     -> set of live tokens for the identity
//
// Expiry is Redis-native: an expired key simply stops resolving, which is the
// lazy enforcement the registry contract asks for. The per-identity set makes
// revoke-all (password change) possible without scanning the keyspace.
const (
	sessionKeyPrefix  = "session:"
	identityKeyPrefix = "identity_sessions:"
	tokenBytes        = 32
)

// SessionStore implements ports.SessionRegistry on Redis.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a SessionStore with the given session TTL. A
// non-positive TTL falls back to 7 days.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Create mints a fresh unguessable token and stores the session under it.
// Every call produces a new token: logging in again rotates the session, so a
// token planted before authentication can never be promoted.
func (s *SessionStore) Create(ctx context.Context, identity *domain.Identity) (*domain.Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		Token:      token,
		IdentityID: identity.ID,
		Username:   identity.Username,
		Role:       identity.Role,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+token, payload, s.ttl)
	pipe.SAdd(ctx, identityKeyPrefix+identity.ID, token)
	// The set outlives each token by a little so revocation still sees tokens
	// that expired moments ago; stale members are pruned on revoke-all.
	pipe.Expire(ctx, identityKeyPrefix+identity.ID, s.ttl+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return session, nil
}

// Resolve looks the token up. Unknown, destroyed, and expired tokens are all
// domain.ErrNoSession; the caller cannot tell them apart, by contract.
func (s *SessionStore) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrNoSession
	}

	payload, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNoSession
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	session.Token = token

	if session.Expired(time.Now().UTC()) {
		// Redis should have evicted the key already; drop it if it lingers.
		_ = s.Destroy(ctx, token)
		return nil, domain.ErrNoSession
	}
	return &session, nil
}

// Destroy removes the token. Destroying an unknown token returns
// domain.ErrNoSession.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	payload, err := s.client.GetDel(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNoSession
		}
		return fmt.Errorf("destroy session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(payload, &session); err == nil && session.IdentityID != "" {
		_ = s.client.SRem(ctx, identityKeyPrefix+session.IdentityID, token).Err()
	}
	return nil
}

// DestroyAllForIdentity revokes every live session of the identity.
func (s *SessionStore) DestroyAllForIdentity(ctx context.Context, identityID string) error {
	setKey := identityKeyPrefix + identityID
	tokens, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKeyPrefix+t)
	}
	keys = append(keys, setKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("destroy sessions: %w", err)
	}
	return nil
}

// newToken returns a 256-bit random token in URL-safe base64.
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
