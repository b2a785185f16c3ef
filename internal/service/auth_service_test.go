package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"clinicapi/internal/auth"
	apperrors "clinicapi/internal/errors"
	"clinicapi/internal/model"
	"clinicapi/internal/notify"
	"clinicapi/internal/repository"
)

type authFixture struct {
	now        time.Time
	user       *model.User
	users      *MockUserRepository
	tokens     *memRefreshTokens
	tokenStore *MockTokenStore
	dispatcher *MockDispatcher
	jwt        *auth.JWTService
	svc        AuthService
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	now := time.Date(2030, 3, 10, 6, 0, 0, 0, time.UTC)
	f := &authFixture{
		now: now,
		user: &model.User{
			ID:           7,
			FullName:     "An Nguyen",
			Email:        "an@clinic.com",
			PasswordHash: hashPassword(t, "secret123"),
			Role:         model.RoleUser,
		},
		users:      new(MockUserRepository),
		tokens:     newMemRefreshTokens(),
		tokenStore: new(MockTokenStore),
		dispatcher: new(MockDispatcher),
		jwt: auth.NewJWTService("test-secret",
			auth.WithIssuer("clinic-api"),
			auth.WithAudience("clinic-clients"),
			auth.WithClock(func() time.Time { return now })),
	}
	f.users.On("FindByEmail", mock.Anything, f.user.Email).Return(f.user, nil).Maybe()
	f.users.On("EmailExists", mock.Anything, f.user.Email).Return(true, nil).Maybe()
	f.users.On("FindByID", mock.Anything, f.user.ID).Return(f.user, nil).Maybe()

	repos := repository.Repositories{Users: f.users, RefreshTokens: f.tokens}
	f.svc = NewAuthService(repos, &txStore{repos: repos}, f.jwt, f.tokenStore, f.dispatcher, AuthConfig{
		RefreshTTL: auth.RefreshTokenExpiry,
		Now:        fixedClock(now),
	}, zerolog.Nop())
	return f
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t)
	f.users.On("EmailExists", mock.Anything, "new@clinic.com").Return(false, nil)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "new@clinic.com" &&
			u.FullName == "New Patient" &&
			u.Role == model.RoleUser &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pa55word")) == nil
	})).Return(nil).Once()

	user, err := f.svc.Register(context.Background(), " new@clinic.com ", "pa55word", "New Patient")

	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, user.Role)
	f.users.AssertExpectations(t)
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), f.user.Email, "whatever", "Dup")

	assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Register_SoftDeletedEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.users.On("EmailExists", mock.Anything, "gone@clinic.com").Return(true, nil)

	_, err := f.svc.Register(context.Background(), "gone@clinic.com", "pa55word", "Returning")

	assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Register_DuplicateKeyOnInsert(t *testing.T) {
	f := newAuthFixture(t)
	f.users.On("EmailExists", mock.Anything, "race@clinic.com").Return(false, nil)
	f.users.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey).Once()

	user, err := f.svc.Register(context.Background(), "race@clinic.com", "pa55word", "Racer")

	assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
	assert.Nil(t, user)
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.svc.Login(context.Background(), f.user.Email, "secret123")

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, model.RoleUser, pair.Role)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	claims, err := f.jwt.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.UserID)
	assert.Equal(t, f.user.Email, claims.Email)
	assert.Equal(t, model.RoleUser, claims.Role)

	stored, err := f.tokens.FindActive(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(auth.RefreshTokenExpiry), stored.ExpiresAt)
}

func TestAuthService_Login_Failures(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "an@clinic.com", "nope"},
		{"unknown email", "ghost@clinic.com", "secret123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			f.users.On("FindByEmail", mock.Anything, "ghost@clinic.com").Return(nil, gorm.ErrRecordNotFound).Maybe()

			pair, err := f.svc.Login(context.Background(), tt.email, tt.password)

			assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
			assert.Nil(t, pair)
			assert.Zero(t, f.tokens.active(f.user.ID))
		})
	}
}

func TestAuthService_Login_KeepsEarlierRefreshTokens(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), f.user.Email, "secret123")
	require.NoError(t, err)
	_, err = f.svc.Login(context.Background(), f.user.Email, "secret123")
	require.NoError(t, err)

	assert.Equal(t, 2, f.tokens.active(f.user.ID))
}

func TestAuthService_Refresh_RotatesToken(t *testing.T) {
	f := newAuthFixture(t)
	login, err := f.svc.Login(context.Background(), f.user.Email, "secret123")
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	loginClaims, err := f.jwt.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	refreshClaims, err := f.jwt.ValidateToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, loginClaims.UserID, refreshClaims.UserID)
	assert.Equal(t, loginClaims.Email, refreshClaims.Email)
	assert.Equal(t, loginClaims.Role, refreshClaims.Role)
	assert.Equal(t, loginClaims.Subject, refreshClaims.Subject)

	_, err = f.svc.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

	_, err = f.svc.Refresh(context.Background(), refreshed.RefreshToken)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.tokens.active(f.user.ID))
}

func TestAuthService_Refresh_CarriesCurrentRole(t *testing.T) {
	f := newAuthFixture(t)
	login, err := f.svc.Login(context.Background(), f.user.Email, "secret123")
	require.NoError(t, err)

	f.user.Role = model.RoleDoctor
	refreshed, err := f.svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)

	claims, err := f.jwt.ValidateToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleDoctor, claims.Role)
	assert.Equal(t, model.RoleDoctor, refreshed.Role)
}

func TestAuthService_Refresh_Rejects(t *testing.T) {
	f := newAuthFixture(t)
	expired := &model.RefreshToken{UserID: f.user.ID, Token: "expired-token", ExpiresAt: f.now.Add(-time.Minute)}
	require.NoError(t, f.tokens.Create(context.Background(), expired))
	revoked := &model.RefreshToken{UserID: f.user.ID, Token: "revoked-token", ExpiresAt: f.now.Add(time.Hour), Revoked: true}
	require.NoError(t, f.tokens.Create(context.Background(), revoked))

	for _, token := range []string{"", "   ", "unknown-token", "expired-token", "revoked-token"} {
		t.Run(token, func(t *testing.T) {
			pair, err := f.svc.Refresh(context.Background(), token)
			assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
			assert.Nil(t, pair)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	login, err := f.svc.Login(context.Background(), f.user.Email, "secret123")
	require.NoError(t, err)
	claims, err := f.jwt.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	f.tokenStore.On("BlacklistAccessToken", mock.Anything, claims.ID, time.Hour).Return(nil).Once()

	require.NoError(t, f.svc.Logout(context.Background(), login.RefreshToken, claims))

	f.tokenStore.AssertExpectations(t)
	_, err = f.svc.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestAuthService_Logout_RotatedRefreshTokenStillBlacklistsAccess(t *testing.T) {
	f := newAuthFixture(t)
	login, err := f.svc.Login(context.Background(), f.user.Email, "secret123")
	require.NoError(t, err)
	claims, err := f.jwt.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	_, err = f.svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	f.tokenStore.On("BlacklistAccessToken", mock.Anything, claims.ID, time.Hour).Return(nil).Once()

	err = f.svc.Logout(context.Background(), login.RefreshToken, claims)

	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	f.tokenStore.AssertExpectations(t)
}

func TestAuthService_Logout_ForeignRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	login, err := f.svc.Login(context.Background(), f.user.Email, "secret123")
	require.NoError(t, err)

	other := &auth.Claims{UserID: 99}
	err = f.svc.Logout(context.Background(), login.RefreshToken, other)

	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	assert.Equal(t, 1, f.tokens.active(f.user.ID))
}

func TestAuthService_ChangePassword(t *testing.T) {
	t.Run("wrong current password", func(t *testing.T) {
		f := newAuthFixture(t)

		err := f.svc.ChangePassword(context.Background(), f.user.ID, "bad", "newpass1")

		assert.ErrorIs(t, err, apperrors.ErrPasswordChangeFailed)
		f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("success", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("newpass1")) == nil
		})).Return(nil).Once()
		f.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(e notify.Event) bool {
			return e.Kind == notify.KindPasswordChanged && e.To == "an@clinic.com"
		})).Return(nil).Once()

		require.NoError(t, f.svc.ChangePassword(context.Background(), f.user.ID, "secret123", "newpass1"))

		f.users.AssertExpectations(t)
		f.dispatcher.AssertExpectations(t)
		_, err := f.svc.Login(context.Background(), f.user.Email, "newpass1")
		assert.NoError(t, err)
	})
}
