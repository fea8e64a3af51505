package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// BootstrapAdmin creates the first administrator when the user table is
// empty and does nothing otherwise. It reports whether it created one.
func (s *Service) BootstrapAdmin(ctx context.Context, username, email, password string) (bool, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return false, domain.ErrValidation.New("bootstrap admin username, email and password are required")
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return false, err
	}
	u, err := s.repo.CreateUser(ctx, domain.User{
		Name:         "Administrator",
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		return false, err
	}

	s.log.Info("created bootstrap admin", zap.String("username", u.Username))
	actor := identityOf(u)
	s.audit(ctx, &actor, "auth.bootstrap_admin", "user", u.ID, "initial admin created")
	return true, nil
}

// LoginWithSession checks the credentials and issues a signed session token.
func (s *Service) LoginWithSession(ctx context.Context, login, password string) (domain.Identity, string, error) {
	u, err := s.authenticate(ctx, login, password)
	if err != nil {
		return domain.Identity{}, "", err
	}
	identity := identityOf(u)
	token, err := s.sessions.Issue(identity)
	if err != nil {
		return domain.Identity{}, "", err
	}
	s.audit(ctx, &identity, "auth.login.session", "user", u.ID, "session login")
	return identity, token, nil
}

// LoginWithAPIToken issues a bearer token for the CLI. Only its hash is kept.
func (s *Service) LoginWithAPIToken(ctx context.Context, login, password, tokenName string, ttl *time.Duration) (domain.Identity, string, error) {
	u, err := s.authenticate(ctx, login, password)
	if err != nil {
		return domain.Identity{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.Identity{}, "", err
	}

	var expiresAt *time.Time
	if ttl != nil {
		t := s.now().Add(*ttl)
		expiresAt = &t
	}
	name := strings.TrimSpace(tokenName)
	if name == "" {
		name = "cli"
	}
	if _, err := s.repo.CreateAPIToken(ctx, domain.APIToken{UserID: u.ID, Name: name, TokenHash: hash, ExpiresAt: expiresAt}); err != nil {
		return domain.Identity{}, "", err
	}

	identity := identityOf(u)
	s.audit(ctx, &identity, "auth.login.api_token", "user", u.ID, "api token issued")
	return identity, plain, nil
}

// AuthenticateSession verifies a session token and reloads the user so a
// deleted account or changed role takes effect immediately.
func (s *Service) AuthenticateSession(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.sessions.Parse(token)
	if err != nil {
		return domain.Identity{}, err
	}
	return s.identityByUserID(ctx, claims.UserID)
}

func (s *Service) AuthenticateBearerToken(ctx context.Context, token string) (domain.Identity, error) {
	apit, err := s.repo.GetAPITokenByTokenHash(ctx, hashToken(token))
	if err != nil {
		if domain.ErrNotFound.Has(err) {
			return domain.Identity{}, domain.ErrUnauthorized.New("invalid token")
		}
		return domain.Identity{}, err
	}
	if apit.ExpiresAt != nil && apit.ExpiresAt.Before(s.now()) {
		return domain.Identity{}, domain.ErrUnauthorized.New("token expired")
	}
	return s.identityByUserID(ctx, apit.UserID)
}

func (s *Service) RevokeAPIToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.repo.DeleteAPITokenByTokenHash(ctx, hashToken(token))
}

func (s *Service) authenticate(ctx context.Context, login, password string) (domain.User, error) {
	if strings.TrimSpace(login) == "" || password == "" {
		return domain.User{}, domain.ErrValidation.New("username and password are required")
	}
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if domain.ErrNotFound.Has(err) {
			return domain.User{}, domain.ErrUnauthorized.New("invalid credentials")
		}
		return domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, domain.ErrUnauthorized.New("invalid credentials")
	}
	return u, nil
}

func (s *Service) identityByUserID(ctx context.Context, userID uint) (domain.Identity, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if domain.ErrNotFound.Has(err) {
			return domain.Identity{}, domain.ErrUnauthorized.New("unknown user")
		}
		return domain.Identity{}, err
	}
	return identityOf(u), nil
}

func identityOf(u domain.User) domain.Identity {
	return domain.Identity{UserID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", domain.ErrInternal.Wrap(err)
	}
	return string(hash), nil
}

func newTokenPair() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", domain.ErrInternal.Wrap(err)
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)
	return plain, hashToken(plain), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum[:])
}
