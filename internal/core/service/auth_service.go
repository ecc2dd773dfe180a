package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/ports"
)

const minPasswordLength = 6

// AuthService implements registration, login, logout, and password changes
// against the credential store and the session registry.
type AuthService struct {
	creds      ports.CredentialRepository
	sessions   ports.SessionRegistry
	bcryptCost int
	log        zerolog.Logger
}

func NewAuthService(creds ports.CredentialRepository, sessions ports.SessionRegistry, bcryptCost int, log zerolog.Logger) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{creds: creds, sessions: sessions, bcryptCost: bcryptCost, log: log}
}

// Register creates a member account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.Identity, *domain.Session, error) {
	if username == "" || len(password) < minPasswordLength {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if domain.IsReservedUsername(username) {
		return nil, nil, domain.ErrReservedName
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	identity, err := s.creds.Create(ctx, &domain.Identity{
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleMember,
	})
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.Create(ctx, identity)
	if err != nil {
		return nil, nil, fmt.Errorf("open session: %w", err)
	}

	s.log.Info().Str("username", username).Msg("account registered")
	return identity, session, nil
}

// Login verifies the credentials and mints a fresh session token. The token
// is never reused, so a pre-login cookie can not be fixated onto the account.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Identity, *domain.Session, error) {
	if username == "" || password == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}

	identity, err := s.creds.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Unknown username and wrong password are indistinguishable.
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	session, err := s.sessions.Create(ctx, identity)
	if err != nil {
		return nil, nil, fmt.Errorf("open session: %w", err)
	}

	return identity, session, nil
}

// Logout destroys the session. A missing or already-destroyed token is not an
// error; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, token); err != nil && !errors.Is(err, domain.ErrNoSession) {
		return err
	}
	return nil
}

// CurrentIdentity loads the identity behind a resolved session.
func (s *AuthService) CurrentIdentity(ctx context.Context, identityID string) (*domain.Identity, error) {
	return s.creds.FindByID(ctx, identityID)
}

// ChangePassword re-verifies the current password, stores the new hash, and
// revokes every live session so stolen cookies die with the old password.
func (s *AuthService) ChangePassword(ctx context.Context, identityID, current, next string) error {
	if len(next) < minPasswordLength {
		return domain.ErrInvalidCredentials
	}

	identity, err := s.creds.FindByID(ctx, identityID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(current)) != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.creds.UpdatePasswordHash(ctx, identityID, string(hash)); err != nil {
		return err
	}

	if err := s.sessions.DestroyAllForIdentity(ctx, identityID); err != nil {
		s.log.Warn().Err(err).Str("identity_id", identityID).Msg("failed to revoke sessions after password change")
	}
	return nil
}

// EnsureAdmin creates the reserved admin account on first startup. The
// configured username joins the reserved set so nobody can register it even
// when it is not the default "admin".
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	domain.ReserveUsername(username)

	if _, err := s.creds.FindByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.creds.Create(ctx, &domain.Identity{
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	})
	if err != nil && !errors.Is(err, domain.ErrDuplicateUsername) {
		return err
	}

	s.log.Info().Str("username", username).Msg("bootstrap admin created")
	return nil
}
