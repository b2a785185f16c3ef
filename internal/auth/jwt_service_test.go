package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicapi/internal/model"
)

func newTestService(now time.Time) *JWTService {
	return NewJWTService("test-secret",
		WithIssuer("clinic-api"),
		WithAudience("clinic-clients"),
		WithTTL(time.Hour),
		WithClock(func() time.Time { return now }),
	)
}

func TestJWTService_RoundTrip(t *testing.T) {
	now := time.Now()
	svc := newTestService(now)
	user := &model.User{ID: 42, Email: "doc@clinic.com"}

	token, err := svc.GenerateAccessToken(user, model.RoleDoctor)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "doc@clinic.com", claims.Email)
	assert.Equal(t, "doc@clinic.com", claims.Username)
	assert.Equal(t, model.RoleDoctor, claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, now.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	token, err := newTestService(issued).GenerateAccessToken(&model.User{ID: 1}, model.RoleUser)
	require.NoError(t, err)

	_, err = newTestService(time.Now()).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsForeignIssuerAndSecret(t *testing.T) {
	now := time.Now()
	user := &model.User{ID: 1}

	other := NewJWTService("test-secret", WithIssuer("someone-else"), WithAudience("clinic-clients"), WithClock(func() time.Time { return now }))
	token, err := other.GenerateAccessToken(user, model.RoleUser)
	require.NoError(t, err)
	_, err = newTestService(now).ValidateToken(token)
	assert.Error(t, err)

	wrongKey := NewJWTService("another-secret", WithIssuer("clinic-api"), WithAudience("clinic-clients"), WithClock(func() time.Time { return now }))
	token, err = wrongKey.GenerateAccessToken(user, model.RoleUser)
	require.NoError(t, err)
	_, err = newTestService(now).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{UserID: 1, Role: model.RoleAdmin}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestService(time.Now()).ValidateToken(token)
	assert.Error(t, err)
}
