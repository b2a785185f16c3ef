package repository

import (
	"context"

	"gorm.io/gorm"

	"clinicapi/internal/model"
)

// RefreshTokenRepository defines refresh token persistence operations.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	// FindActive looks up an unrevoked token by its exact value.
	FindActive(ctx context.Context, token string) (*model.RefreshToken, error)
	// Revoke marks the token revoked and reports whether this call did it.
	Revoke(ctx context.Context, id uint) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint) error
}

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository.
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *refreshTokenRepository) FindActive(ctx context.Context, token string) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	if err := r.db.WithContext(ctx).
		Where("token = ? AND revoked = ?", token, false).
		First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// Revoke only flips unrevoked rows, so two concurrent refreshes of the same
// token cannot both succeed.
func (r *refreshTokenRepository) Revoke(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}
