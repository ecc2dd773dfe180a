package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicore/community-api/internal/core/domain"
)

type stubCredentialRepo struct {
	byID     map[string]*domain.Identity
	byName   map[string]*domain.Identity
	nextID   int
	failWith error
}

func newStubCredentialRepo() *stubCredentialRepo {
	return &stubCredentialRepo{
		byID:   make(map[string]*domain.Identity),
		byName: make(map[string]*domain.Identity),
	}
}

func cloneIdentity(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

func (r *stubCredentialRepo) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	if _, exists := r.byName[identity.Username]; exists {
		return nil, domain.ErrDuplicateUsername
	}
	r.nextID++
	copy := cloneIdentity(identity)
	copy.ID = "id-" + strconv.Itoa(r.nextID)
	copy.CreatedAt = time.Now().UTC()
	r.byID[copy.ID] = cloneIdentity(copy)
	r.byName[copy.Username] = r.byID[copy.ID]
	return cloneIdentity(copy), nil
}

func (r *stubCredentialRepo) FindByUsername(_ context.Context, username string) (*domain.Identity, error) {
	if i, ok := r.byName[username]; ok {
		return cloneIdentity(i), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubCredentialRepo) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	if i, ok := r.byID[id]; ok {
		return cloneIdentity(i), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubCredentialRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	i, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	i.PasswordHash = hash
	return nil
}

type stubSessionRegistry struct {
	sessions map[string]*domain.Session
	nextID   int
}

func newStubSessionRegistry() *stubSessionRegistry {
	return &stubSessionRegistry{sessions: make(map[string]*domain.Session)}
}

func (r *stubSessionRegistry) Create(_ context.Context, identity *domain.Identity) (*domain.Session, error) {
	r.nextID++
	s := &domain.Session{
		Token:      fmt.Sprintf("token-%d", r.nextID),
		IdentityID: identity.ID,
		Username:   identity.Username,
		Role:       identity.Role,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}
	r.sessions[s.Token] = s
	return s, nil
}

func (r *stubSessionRegistry) Resolve(_ context.Context, token string) (*domain.Session, error) {
	if s, ok := r.sessions[token]; ok {
		return s, nil
	}
	return nil, domain.ErrNoSession
}

func (r *stubSessionRegistry) Destroy(_ context.Context, token string) error {
	if _, ok := r.sessions[token]; !ok {
		return domain.ErrNoSession
	}
	delete(r.sessions, token)
	return nil
}

func (r *stubSessionRegistry) DestroyAllForIdentity(_ context.Context, identityID string) error {
	for token, s := range r.sessions {
		if s.IdentityID == identityID {
			delete(r.sessions, token)
		}
	}
	return nil
}

func newAuthService(creds *stubCredentialRepo, sessions *stubSessionRegistry) *AuthService {
	return NewAuthService(creds, sessions, bcrypt.MinCost, zerolog.Nop())
}

func TestAuthService_Register_Success(t *testing.T) {
	creds := newStubCredentialRepo()
	sessions := newStubSessionRegistry()
	svc := newAuthService(creds, sessions)

	identity, session, err := svc.Register(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if identity.Role != domain.RoleMember {
		t.Fatalf("expected member role, got %q", identity.Role)
	}
	if identity.PasswordHash == "secret1" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte("secret1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if session == nil || session.Token == "" {
		t.Fatalf("expected a session to be opened")
	}
	if session.IdentityID != identity.ID {
		t.Fatalf("session bound to wrong identity: %s", session.IdentityID)
	}
}

func TestAuthService_Register_StoreFailure(t *testing.T) {
	creds := newStubCredentialRepo()
	creds.failWith = errors.New("connection reset")
	sessions := newStubSessionRegistry()
	svc := newAuthService(creds, sessions)

	if _, _, err := svc.Register(context.Background(), "hank", "secret1"); !errors.Is(err, creds.failWith) {
		t.Fatalf("expected the storage error to surface, got %v", err)
	}
	if len(sessions.sessions) != 0 {
		t.Fatalf("no session may be opened when the insert fails")
	}
}

func TestAuthService_Register_ShortPassword(t *testing.T) {
	svc := newAuthService(newStubCredentialRepo(), newStubSessionRegistry())

	if _, _, err := svc.Register(context.Background(), "alice", "short"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Register_ReservedName(t *testing.T) {
	svc := newAuthService(newStubCredentialRepo(), newStubSessionRegistry())

	if _, _, err := svc.Register(context.Background(), "admin", "secret1"); !errors.Is(err, domain.ErrReservedName) {
		t.Fatalf("expected ErrReservedName, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc := newAuthService(newStubCredentialRepo(), newStubSessionRegistry())

	if _, _, err := svc.Register(context.Background(), "bob", "secret1"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, _, err := svc.Register(context.Background(), "bob", "secret2"); !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestAuthService_EnsureAdmin_ReservesConfiguredName(t *testing.T) {
	svc := newAuthService(newStubCredentialRepo(), newStubSessionRegistry())

	if err := svc.EnsureAdmin(context.Background(), "root", "rootpass1"); err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}
	if _, _, err := svc.Register(context.Background(), "root", "secret1"); !errors.Is(err, domain.ErrReservedName) {
		t.Fatalf("configured admin name must be reserved, got %v", err)
	}
}

func TestAuthService_Login_RotatesToken(t *testing.T) {
	svc := newAuthService(newStubCredentialRepo(), newStubSessionRegistry())

	_, first, err := svc.Register(context.Background(), "carol", "s3cret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, second, err := svc.Login(context.Background(), "carol", "s3cret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if second.Token == first.Token {
		t.Fatalf("login must mint a fresh token, got the old one")
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc := newAuthService(newStubCredentialRepo(), newStubSessionRegistry())

	if _, _, err := svc.Register(context.Background(), "dave", "s3cret1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "dave", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownUserIndistinguishable(t *testing.T) {
	svc := newAuthService(newStubCredentialRepo(), newStubSessionRegistry())

	_, _, err := svc.Login(context.Background(), "ghost", "whatever")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown username must look like a bad password, got %v", err)
	}
}

func TestAuthService_Logout_Idempotent(t *testing.T) {
	sessions := newStubSessionRegistry()
	svc := newAuthService(newStubCredentialRepo(), sessions)

	_, session, err := svc.Register(context.Background(), "erin", "s3cret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.Logout(context.Background(), session.Token); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := sessions.Resolve(context.Background(), session.Token); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("session must be gone after logout")
	}
	// Second logout of the same token is still a success.
	if err := svc.Logout(context.Background(), session.Token); err != nil {
		t.Fatalf("repeated logout must not error: %v", err)
	}
}

func TestAuthService_ChangePassword_RevokesAllSessions(t *testing.T) {
	sessions := newStubSessionRegistry()
	svc := newAuthService(newStubCredentialRepo(), sessions)

	identity, s1, err := svc.Register(context.Background(), "frank", "oldpass1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	_, s2, err := svc.Login(context.Background(), "frank", "oldpass1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), identity.ID, "oldpass1", "newpass1"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	for _, token := range []string{s1.Token, s2.Token} {
		if _, err := sessions.Resolve(context.Background(), token); !errors.Is(err, domain.ErrNoSession) {
			t.Fatalf("token %s must be revoked after password change", token)
		}
	}

	if _, _, err := svc.Login(context.Background(), "frank", "oldpass1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password must no longer work")
	}
	if _, _, err := svc.Login(context.Background(), "frank", "newpass1"); err != nil {
		t.Fatalf("new password must work: %v", err)
	}
}

func TestAuthService_ChangePassword_WrongCurrent(t *testing.T) {
	svc := newAuthService(newStubCredentialRepo(), newStubSessionRegistry())

	identity, _, err := svc.Register(context.Background(), "gina", "oldpass1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := svc.ChangePassword(context.Background(), identity.ID, "nope", "newpass1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_EnsureAdmin_Idempotent(t *testing.T) {
	creds := newStubCredentialRepo()
	svc := newAuthService(creds, newStubSessionRegistry())

	if err := svc.EnsureAdmin(context.Background(), "admin", "rootpass1"); err != nil {
		t.Fatalf("first EnsureAdmin failed: %v", err)
	}
	admin, err := creds.FindByUsername(context.Background(), "admin")
	if err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if admin.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %q", admin.Role)
	}

	if err := svc.EnsureAdmin(context.Background(), "admin", "otherpass"); err != nil {
		t.Fatalf("second EnsureAdmin must be a no-op: %v", err)
	}
	again, _ := creds.FindByUsername(context.Background(), "admin")
	if again.PasswordHash != admin.PasswordHash {
		t.Fatalf("EnsureAdmin must not overwrite an existing account")
	}
}
