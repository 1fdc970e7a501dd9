package repository

import (
	"context"
	"time"

	"github.com/campushub/smartmail/internal/domain"
	"gorm.io/gorm"
)

// ElectionRepository exposes the single transition the scheduler owns.
type ElectionRepository interface {
	CompleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type GormElectionRepo struct {
	db *gorm.DB
}

func NewGormElectionRepo(db *gorm.DB) *GormElectionRepo {
	return &GormElectionRepo{db: db}
}

func (r *GormElectionRepo) CompleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&ElectionModel{}).
		Where("status = ? AND ends_at < ?", domain.ElectionStatusActive, now).
		Update("status", domain.ElectionStatusCompleted)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
