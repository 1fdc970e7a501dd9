package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/campushub/smartmail/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageRepository is the quota/usage counter store for mail providers.
type UsageRepository interface {
	Attempts(ctx context.Context, providerID string, day string) (int, error)
	RecordAttempt(ctx context.Context, providerID string, day string, hour int, success bool) error
	DayUsage(ctx context.Context, day string) ([]domain.ProviderUsage, error)
}

type GormUsageRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormUsageRepo(db *gorm.DB) *GormUsageRepo {
	return &GormUsageRepo{db: db, now: time.Now}
}

func (r *GormUsageRepo) Attempts(ctx context.Context, providerID string, day string) (int, error) {
	var model ProviderUsageModel
	err := r.db.WithContext(ctx).
		Select("attempts").
		First(&model, "provider_id = ? AND usage_date = ?", providerID, day).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return model.Attempts, nil
}

// RecordAttempt upserts the (provider, day) row with a single atomic
// statement. The DO UPDATE arm increments against the stored value, never
// a value read beforehand, so concurrent senders cannot lose updates.
func (r *GormUsageRepo) RecordAttempt(ctx context.Context, providerID string, day string, hour int, success bool) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", domain.ErrValidation, hour)
	}

	successes := 0
	failures := 0
	if success {
		successes = 1
	} else {
		failures = 1
	}

	model := &ProviderUsageModel{
		ProviderID: providerID,
		UsageDate:  day,
		Attempts:   1,
		Successes:  successes,
		Failures:   failures,
		Hourly:     domain.HourHistogram{hour: 1},
	}

	hourPath := fmt.Sprintf("{%d}", hour)
	hourKey := strconv.Itoa(hour)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider_id"}, {Name: "usage_date"}},
			DoUpdates: clause.Assignments(map[string]any{
				"attempts":  gorm.Expr("provider_daily_usage.attempts + 1"),
				"successes": gorm.Expr("provider_daily_usage.successes + ?", successes),
				"failures":  gorm.Expr("provider_daily_usage.failures + ?", failures),
				"hourly": gorm.Expr(
					`jsonb_set(COALESCE(provider_daily_usage.hourly, '{}'::jsonb), ?::text[], (COALESCE(provider_daily_usage.hourly->>?, '0')::int + 1)::text::jsonb, true)`,
					hourPath, hourKey,
				),
				"updated_at": r.now().UTC(),
			}),
		}).
		Create(model).Error
}

func (r *GormUsageRepo) DayUsage(ctx context.Context, day string) ([]domain.ProviderUsage, error) {
	var models []ProviderUsageModel
	err := r.db.WithContext(ctx).
		Where("usage_date = ?", day).
		Order("provider_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	usages := make([]domain.ProviderUsage, 0, len(models))
	for i := range models {
		usages = append(usages, *usageModelToDomain(&models[i]))
	}

	return usages, nil
}
