package domain

import "time"

// Session is a member login session. The scheduler deletes sessions whose
// last activity is older than the configured lifetime, plus a daily deep
// sweep of anything older than a day regardless of configuration.
type Session struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	MemberID   string    `gorm:"type:uuid;not null"`
	LastSeenAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt  time.Time
}

// PasswordResetToken is a one-shot reset token; tokens older than a day
// are purged by the scheduler.
type PasswordResetToken struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	MemberID  string    `gorm:"type:uuid;not null"`
	TokenHash string    `gorm:"type:varchar(128);not null"`
	CreatedAt time.Time
}
