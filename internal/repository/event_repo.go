package repository

import (
	"context"
	"time"

	"github.com/campushub/smartmail/internal/domain"
	"gorm.io/gorm"
)

// EventRepository exposes the narrow slice of the events schema the
// reminder job needs: window queries, confirmed recipients, and the
// one-shot reminder flags.
type EventRepository interface {
	DueForOneDayReminder(ctx context.Context, from, to time.Time) ([]domain.Event, error)
	DueForTwoHourReminder(ctx context.Context, from, to time.Time) ([]domain.Event, error)
	ConfirmedRecipients(ctx context.Context, eventID string) ([]domain.Recipient, error)
	MarkOneDayReminderSent(ctx context.Context, id string) error
	MarkTwoHourReminderSent(ctx context.Context, id string) error
}

type GormEventRepo struct {
	db *gorm.DB
}

func NewGormEventRepo(db *gorm.DB) *GormEventRepo {
	return &GormEventRepo{db: db}
}

func (r *GormEventRepo) DueForOneDayReminder(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	return r.dueForReminder(ctx, "one_day_reminder_sent", from, to)
}

func (r *GormEventRepo) DueForTwoHourReminder(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	return r.dueForReminder(ctx, "two_hour_reminder_sent", from, to)
}

func (r *GormEventRepo) dueForReminder(ctx context.Context, flagColumn string, from, to time.Time) ([]domain.Event, error) {
	var models []EventModel
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.EventStatusActive).
		Where(flagColumn+" = ?", false).
		Where("starts_at >= ? AND starts_at <= ?", from, to).
		Order("starts_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(models))
	for i := range models {
		events = append(events, *eventModelToDomain(&models[i]))
	}

	return events, nil
}

func (r *GormEventRepo) ConfirmedRecipients(ctx context.Context, eventID string) ([]domain.Recipient, error) {
	var models []EventAttendeeModel
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, domain.AttendeeStatusConfirmed).
		Where("email IS NOT NULL").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	recipients := make([]domain.Recipient, 0, len(models))
	for i := range models {
		if models[i].Email == nil || *models[i].Email == "" {
			continue
		}
		recipients = append(recipients, domain.Recipient{
			MemberID: models[i].MemberID,
			Email:    *models[i].Email,
		})
	}

	return recipients, nil
}

func (r *GormEventRepo) MarkOneDayReminderSent(ctx context.Context, id string) error {
	return r.markReminderSent(ctx, "one_day_reminder_sent", id)
}

func (r *GormEventRepo) MarkTwoHourReminderSent(ctx context.Context, id string) error {
	return r.markReminderSent(ctx, "two_hour_reminder_sent", id)
}

// markReminderSent flips the flag false->true, guarded so it happens at
// most once; a zero-row update means another tick already marked it.
func (r *GormEventRepo) markReminderSent(ctx context.Context, flagColumn string, id string) error {
	return r.db.WithContext(ctx).
		Model(&EventModel{}).
		Where("id = ? AND "+flagColumn+" = ?", id, false).
		Update(flagColumn, true).Error
}
