package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// TokenRepository exposes the purge operation for password reset tokens.
type TokenRepository interface {
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type GormTokenRepo struct {
	db *gorm.DB
}

func NewGormTokenRepo(db *gorm.DB) *GormTokenRepo {
	return &GormTokenRepo{db: db}
}

func (r *GormTokenRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&PasswordResetTokenModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
