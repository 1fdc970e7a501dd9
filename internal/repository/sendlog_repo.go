package repository

import (
	"context"

	"github.com/campushub/smartmail/internal/domain"
	"gorm.io/gorm"
)

// SendLogRepository is the append-only store for send attempt records.
type SendLogRepository interface {
	Append(ctx context.Context, l *domain.SendLog) error
	Recent(ctx context.Context, limit int) ([]domain.SendLog, error)
}

type GormSendLogRepo struct {
	db *gorm.DB
}

func NewGormSendLogRepo(db *gorm.DB) *GormSendLogRepo {
	return &GormSendLogRepo{db: db}
}

func (r *GormSendLogRepo) Append(ctx context.Context, l *domain.SendLog) error {
	model := sendLogModelFromDomain(l)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if l != nil {
		*l = *sendLogModelToDomain(model)
	}
	return nil
}

func (r *GormSendLogRepo) Recent(ctx context.Context, limit int) ([]domain.SendLog, error) {
	if limit < 1 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	var models []SendLogModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	logs := make([]domain.SendLog, 0, len(models))
	for i := range models {
		logs = append(logs, *sendLogModelToDomain(&models[i]))
	}

	return logs, nil
}
