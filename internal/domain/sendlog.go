package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// SendLog is one append-only record per send attempt. ProviderID is nil
// when no provider was under quota at the time of the attempt.
type SendLog struct {
	ID          string      `gorm:"type:uuid;primaryKey"`
	ProviderID  *string     `gorm:"type:varchar(64)"`
	Recipient   string      `gorm:"type:varchar(255);not null"`
	MessageType MessageType `gorm:"type:varchar(32);not null"`
	Status      SendStatus  `gorm:"type:varchar(10);not null"`
	Error       *string     `gorm:"type:text"`
	Origin      string      `gorm:"type:varchar(32);not null"`
	CreatedAt   time.Time
}

// Origin values recorded on send logs.
const (
	OriginInteractive = "interactive"
	OriginScheduler   = "scheduler"
)

func (l *SendLog) Validate() error {
	if strings.TrimSpace(l.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(l.Recipient); err != nil {
		return fmt.Errorf("%w: invalid recipient address %q", ErrValidation, l.Recipient)
	}
	if !l.MessageType.IsValid() {
		return fmt.Errorf("%w: invalid message type %q", ErrValidation, l.MessageType)
	}
	if !l.Status.IsValid() {
		return fmt.Errorf("%w: invalid send status %q", ErrValidation, l.Status)
	}
	return nil
}
