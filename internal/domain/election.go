package domain

import (
	"fmt"
	"strings"
	"time"
)

// ElectionStatus represents the lifecycle state of a community election.
type ElectionStatus string

const (
	ElectionStatusDraft     ElectionStatus = "DRAFT"
	ElectionStatusActive    ElectionStatus = "ACTIVE"
	ElectionStatusCompleted ElectionStatus = "COMPLETED"
)

func (s ElectionStatus) String() string { return string(s) }

func (s ElectionStatus) IsValid() bool {
	switch s {
	case ElectionStatusDraft, ElectionStatusActive, ElectionStatusCompleted:
		return true
	}
	return false
}

func ParseElectionStatusFromString(s string) (ElectionStatus, error) {
	st := ElectionStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid election status %q", ErrValidation, s)
	}
	return st, nil
}

// Election is owned by the elections service; the scheduler performs a
// single narrow transition on it: ACTIVE with ends_at in the past becomes
// COMPLETED.
type Election struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	Title     string         `gorm:"type:varchar(255);not null"`
	Status    ElectionStatus `gorm:"type:varchar(20);not null"`
	EndsAt    time.Time      `gorm:"type:timestamptz;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
