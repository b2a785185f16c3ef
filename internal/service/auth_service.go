package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"clinicapi/internal/auth"
	apperrors "clinicapi/internal/errors"
	"clinicapi/internal/model"
	"clinicapi/internal/notify"
	"clinicapi/internal/repository"
)

// TokenPair is the result of a login or refresh.
type TokenPair struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	Role         model.Role `json:"role"`
	ExpiresIn    int64      `json:"expires_in"`
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, email, password, fullName string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string, access *auth.Claims) error
	ChangePassword(ctx context.Context, userID uint, current, next string) error
}

type authService struct {
	users      repository.UserRepository
	tokens     repository.RefreshTokenRepository
	store      repository.Store
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	dispatcher notify.Dispatcher
	refreshTTL time.Duration
	now        Clock
	log        zerolog.Logger
}

// AuthConfig holds token lifetimes.
type AuthConfig struct {
	RefreshTTL time.Duration
	Now        Clock
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	repos repository.Repositories,
	store repository.Store,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	dispatcher notify.Dispatcher,
	cfg AuthConfig,
	log zerolog.Logger,
) AuthService {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = auth.RefreshTokenExpiry
	}
	if dispatcher == nil {
		dispatcher = nopDispatcher{}
	}
	return &authService{
		users:      repos.Users,
		tokens:     repos.RefreshTokens,
		store:      store,
		jwtService: jwtService,
		tokenStore: tokenStore,
		dispatcher: dispatcher,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now.orDefault(),
		log:        log,
	}
}

// Register creates a new User-role account with a hashed password.
func (s *authService) Register(ctx context.Context, email, password, fullName string) (*model.User, error) {
	email = strings.TrimSpace(email)
	taken, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check user existence: %w", err)
	}
	if taken {
		return nil, apperrors.ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hashed),
		Role:         model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login authenticates a user and issues an access token plus a fresh refresh
// token. Previously issued refresh tokens stay valid.
func (s *authService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	refresh, err := s.newRefreshToken(ctx, s.tokens, user.ID)
	if err != nil {
		return nil, err
	}
	return s.pair(user, refresh)
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked in the same transaction that stores its replacement, so it can be
// used exactly once.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	var (
		user  *model.User
		fresh string
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		stored, err := repos.RefreshTokens.FindActive(ctx, refreshToken)
		if err != nil {
			if isNotFound(err) {
				return apperrors.ErrInvalidRefreshToken
			}
			return fmt.Errorf("find refresh token: %w", err)
		}
		if !stored.Usable(s.now()) {
			return apperrors.ErrInvalidRefreshToken
		}

		revoked, err := repos.RefreshTokens.Revoke(ctx, stored.ID)
		if err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		if !revoked {
			return apperrors.ErrInvalidRefreshToken
		}

		user, err = repos.Users.FindByID(ctx, stored.UserID)
		if err != nil {
			if isNotFound(err) {
				return apperrors.ErrInvalidRefreshToken
			}
			return fmt.Errorf("find user: %w", err)
		}

		fresh, err = s.newRefreshToken(ctx, repos.RefreshTokens, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.pair(user, fresh)
}

// Logout blacklists the presented access token until it would have expired
// anyway, then revokes the refresh token. The access token is blacklisted
// even when the refresh token turns out to be unknown or already rotated.
func (s *authService) Logout(ctx context.Context, refreshToken string, access *auth.Claims) error {
	if access != nil && access.ExpiresAt != nil {
		ttl := access.ExpiresAt.Time.Sub(s.now())
		if err := s.tokenStore.BlacklistAccessToken(ctx, access.ID, ttl); err != nil {
			s.log.Warn().Err(err).Uint("user_id", access.UserID).Msg("blacklist access token failed")
		}
	}

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	stored, err := s.tokens.FindActive(ctx, refreshToken)
	if err != nil {
		if isNotFound(err) {
			return apperrors.ErrInvalidRefreshToken
		}
		return fmt.Errorf("find refresh token: %w", err)
	}
	if access != nil && stored.UserID != access.UserID {
		return apperrors.ErrInvalidRefreshToken
	}
	if _, err := s.tokens.Revoke(ctx, stored.ID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *authService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return notFound(err, apperrors.ErrUserNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return apperrors.ErrPasswordChangeFailed
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hashed)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	event := notify.Event{
		Kind: notify.KindPasswordChanged,
		To:   user.Email,
		Data: map[string]string{notify.FieldName: user.FullName},
	}
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.log.Warn().Err(err).Uint("user_id", user.ID).Msg("password notification not queued")
	}
	return nil
}

func (s *authService) newRefreshToken(ctx context.Context, repo repository.RefreshTokenRepository, userID uint) (string, error) {
	token := &model.RefreshToken{
		UserID:    userID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := repo.Create(ctx, token); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return token.Token, nil
}

func (s *authService) pair(user *model.User, refresh string) (*TokenPair, error) {
	access, err := s.jwtService.GenerateAccessToken(user, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Role:         user.Role,
		ExpiresIn:    int64(s.jwtService.TTL().Seconds()),
	}, nil
}
