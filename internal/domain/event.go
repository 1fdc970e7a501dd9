package domain

import (
	"fmt"
	"strings"
	"time"
)

// EventStatus represents the lifecycle state of a community event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusActive    EventStatus = "ACTIVE"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

func (s EventStatus) String() string { return string(s) }

func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusDraft, EventStatusActive, EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

func ParseEventStatusFromString(s string) (EventStatus, error) {
	st := EventStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid event status %q", ErrValidation, s)
	}
	return st, nil
}

// Event is the reminderable community event. The mail core only reads it
// and writes back the two reminder flags; everything else belongs to the
// events service. Each flag flips false->true exactly once and is never
// reset, so an event is considered for each reminder window at most once.
type Event struct {
	ID                  string      `gorm:"type:uuid;primaryKey"`
	Title               string      `gorm:"type:varchar(255);not null"`
	Location            string      `gorm:"type:varchar(255)"`
	Status              EventStatus `gorm:"type:varchar(20);not null"`
	StartsAt            time.Time   `gorm:"type:timestamptz;not null"`
	OneDayReminderSent  bool        `gorm:"not null;default:false"`
	TwoHourReminderSent bool        `gorm:"not null;default:false"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AttendeeStatus is the RSVP state of an event attendee.
type AttendeeStatus string

const (
	AttendeeStatusConfirmed AttendeeStatus = "CONFIRMED"
	AttendeeStatusWaitlist  AttendeeStatus = "WAITLIST"
	AttendeeStatusDeclined  AttendeeStatus = "DECLINED"
)

func (s AttendeeStatus) String() string { return string(s) }

func (s AttendeeStatus) IsValid() bool {
	switch s {
	case AttendeeStatusConfirmed, AttendeeStatusWaitlist, AttendeeStatusDeclined:
		return true
	}
	return false
}

// EventAttendee links a member to an event. Email may be null for members
// who registered without one; reminder fan-out skips those.
type EventAttendee struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	EventID   string         `gorm:"type:uuid;not null"`
	MemberID  string         `gorm:"type:uuid;not null"`
	Email     *string        `gorm:"type:varchar(255)"`
	Status    AttendeeStatus `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
}

// Recipient is the (id, email) pair the reminder fan-out needs.
type Recipient struct {
	MemberID string
	Email    string
}
