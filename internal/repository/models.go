package repository

import (
	"time"

	"github.com/campushub/smartmail/internal/domain"
)

// ProviderUsageModel is the persistence model for provider_daily_usage.
// One row per (provider, calendar day); counters are only ever incremented
// in place via the upsert in usage_repo.go.
type ProviderUsageModel struct {
	ProviderID string               `gorm:"type:varchar(64);primaryKey"`
	UsageDate  string               `gorm:"type:date;primaryKey"`
	Attempts   int                  `gorm:"not null;default:0"`
	Successes  int                  `gorm:"not null;default:0"`
	Failures   int                  `gorm:"not null;default:0"`
	Hourly     domain.HourHistogram `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (ProviderUsageModel) TableName() string {
	return "provider_daily_usage"
}

// SendLogModel is the persistence model for email_send_logs.
type SendLogModel struct {
	ID          string             `gorm:"type:uuid;primaryKey"`
	ProviderID  *string            `gorm:"type:varchar(64)"`
	Recipient   string             `gorm:"type:varchar(255);not null"`
	MessageType domain.MessageType `gorm:"type:varchar(32);not null"`
	Status      domain.SendStatus  `gorm:"type:varchar(10);not null"`
	Error       *string            `gorm:"type:text"`
	Origin      string             `gorm:"type:varchar(32);not null"`
	CreatedAt   time.Time
}

func (SendLogModel) TableName() string {
	return "email_send_logs"
}

// EventModel is the persistence model for events.
type EventModel struct {
	ID                  string             `gorm:"type:uuid;primaryKey"`
	Title               string             `gorm:"type:varchar(255);not null"`
	Location            string             `gorm:"type:varchar(255)"`
	Status              domain.EventStatus `gorm:"type:varchar(20);not null"`
	StartsAt            time.Time          `gorm:"type:timestamptz;not null"`
	OneDayReminderSent  bool               `gorm:"not null;default:false"`
	TwoHourReminderSent bool               `gorm:"not null;default:false"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (EventModel) TableName() string {
	return "events"
}

// EventAttendeeModel is the persistence model for event_attendees.
type EventAttendeeModel struct {
	ID        string                `gorm:"type:uuid;primaryKey"`
	EventID   string                `gorm:"type:uuid;not null"`
	MemberID  string                `gorm:"type:uuid;not null"`
	Email     *string               `gorm:"type:varchar(255)"`
	Status    domain.AttendeeStatus `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
}

func (EventAttendeeModel) TableName() string {
	return "event_attendees"
}

// ElectionModel is the persistence model for elections.
type ElectionModel struct {
	ID        string                `gorm:"type:uuid;primaryKey"`
	Title     string                `gorm:"type:varchar(255);not null"`
	Status    domain.ElectionStatus `gorm:"type:varchar(20);not null"`
	EndsAt    time.Time             `gorm:"type:timestamptz;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ElectionModel) TableName() string {
	return "elections"
}

// SessionModel is the persistence model for sessions.
type SessionModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	MemberID   string    `gorm:"type:uuid;not null"`
	LastSeenAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt  time.Time
}

func (SessionModel) TableName() string {
	return "sessions"
}

// PasswordResetTokenModel is the persistence model for password_reset_tokens.
type PasswordResetTokenModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	MemberID  string    `gorm:"type:uuid;not null"`
	TokenHash string    `gorm:"type:varchar(128);not null"`
	CreatedAt time.Time
}

func (PasswordResetTokenModel) TableName() string {
	return "password_reset_tokens"
}

func usageModelToDomain(m *ProviderUsageModel) *domain.ProviderUsage {
	if m == nil {
		return nil
	}

	return &domain.ProviderUsage{
		ProviderID: m.ProviderID,
		UsageDate:  m.UsageDate,
		Attempts:   m.Attempts,
		Successes:  m.Successes,
		Failures:   m.Failures,
		Hourly:     m.Hourly,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func sendLogModelFromDomain(l *domain.SendLog) *SendLogModel {
	if l == nil {
		return nil
	}

	return &SendLogModel{
		ID:          l.ID,
		ProviderID:  l.ProviderID,
		Recipient:   l.Recipient,
		MessageType: l.MessageType,
		Status:      l.Status,
		Error:       l.Error,
		Origin:      l.Origin,
		CreatedAt:   l.CreatedAt,
	}
}

func sendLogModelToDomain(m *SendLogModel) *domain.SendLog {
	if m == nil {
		return nil
	}

	return &domain.SendLog{
		ID:          m.ID,
		ProviderID:  m.ProviderID,
		Recipient:   m.Recipient,
		MessageType: m.MessageType,
		Status:      m.Status,
		Error:       m.Error,
		Origin:      m.Origin,
		CreatedAt:   m.CreatedAt,
	}
}

func eventModelToDomain(m *EventModel) *domain.Event {
	if m == nil {
		return nil
	}

	return &domain.Event{
		ID:                  m.ID,
		Title:               m.Title,
		Location:            m.Location,
		Status:              m.Status,
		StartsAt:            m.StartsAt,
		OneDayReminderSent:  m.OneDayReminderSent,
		TwoHourReminderSent: m.TwoHourReminderSent,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}
