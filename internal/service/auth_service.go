package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// MinPasswordLength and MaxPasswordLength bound passwords chosen at activation.
const (
	MinPasswordLength = 4
	MaxPasswordLength = 100
)

// AuthService coordinates login, account activation and startup bootstrap.
type AuthService struct {
	users       repository.UserRepository
	authorities repository.AuthorityRepository
	dispatcher  events.Dispatcher
	tokenMgr    *auth.TokenManager
	bcryptCost  int
	known       []string
	admin       config.AdminConfig
	logger      *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo      repository.UserRepository
	AuthorityRepo repository.AuthorityRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.UserRepo,
		authorities: deps.AuthorityRepo,
		dispatcher:  deps.Dispatcher,
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost:  cfg.Auth.BcryptCost,
		known:       cfg.Users.Authorities,
		admin:       cfg.Admin,
		logger:      logger,
	}
}

// Authenticate verifies credentials and issues an access token for the
// username. Unknown users, wrong passwords and accounts that are not
// yet activated all fail the same way.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := s.users.GetByUsername(ctx, domain.NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Activated {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.Username)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}

// ActivateRegistration consumes an activation key: the owner sets a password,
// the account becomes active and the key is cleared.
func (s *AuthService) ActivateRegistration(ctx context.Context, key, password string) (*domain.User, error) {
	if l := len(password); l < MinPasswordLength || l > MaxPasswordLength {
		return nil, apperrors.NewValidationError("invalid activation payload", map[string]any{
			"password": "must be 4-100 characters",
		})
	}
	if key == "" {
		return nil, apperrors.NewNotFound("activation key", nil)
	}

	user, err := s.users.GetByActivationKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("activation key", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	user.Activated = true
	user.ActivationKey = nil
	user.LastModifiedBy = user.Username
	user.LastModifiedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user, nil); err != nil {
		return nil, mapWriteError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:   events.EventUserActivated,
		UserID: user.ID,
		Actor:  user.Username,
	})
	return user, nil
}

// EnsureAuthorities makes sure every configured authority exists.
func (s *AuthService) EnsureAuthorities(ctx context.Context) error {
	names := append([]string{domain.AuthorityAdmin, domain.AuthorityUser}, s.known...)
	for _, name := range names {
		if err := s.authorities.Ensure(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// EnsureAdmin creates the bootstrap administrator when a password is
// configured and the account does not exist yet. An existing account is left
// untouched.
func (s *AuthService) EnsureAdmin(ctx context.Context) error {
	if s.admin.Password == "" {
		s.logger.Info("admin bootstrap skipped; no password configured")
		return nil
	}
	username := domain.NormalizeUsername(s.admin.Username)
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(s.admin.Password, s.bcryptCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	admin := &domain.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          s.admin.Email,
		FirstName:      "Administrator",
		LangKey:        "en",
		Activated:      true,
		PasswordHash:   hash,
		CreatedBy:      "system",
		CreatedAt:      now,
		LastModifiedBy: "system",
		LastModifiedAt: now,
	}
	if err := s.users.Create(ctx, admin, []string{domain.AuthorityAdmin, domain.AuthorityUser}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return err
	}
	s.logger.Info("admin account created", zap.String("username", username))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
