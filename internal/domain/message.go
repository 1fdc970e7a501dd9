package domain

import (
	"fmt"
	"strings"
)

// MessageType identifies the templated email being dispatched.
type MessageType string

const (
	MessageVerification    MessageType = "VERIFICATION"
	MessagePasswordReset   MessageType = "PASSWORD_RESET"
	MessageReminderOneDay  MessageType = "EVENT_REMINDER_ONE_DAY"
	MessageReminderTwoHour MessageType = "EVENT_REMINDER_TWO_HOUR"
)

func (m MessageType) String() string { return string(m) }

func (m MessageType) IsValid() bool {
	switch m {
	case MessageVerification, MessagePasswordReset, MessageReminderOneDay, MessageReminderTwoHour:
		return true
	}
	return false
}

func ParseMessageTypeFromString(s string) (MessageType, error) {
	mt := MessageType(strings.ToUpper(strings.TrimSpace(s)))
	if !mt.IsValid() {
		return "", fmt.Errorf("%w: invalid message type %q", ErrValidation, s)
	}
	return mt, nil
}

// SendStatus is the terminal outcome of a single send attempt.
type SendStatus string

const (
	SendStatusSent   SendStatus = "SENT"
	SendStatusFailed SendStatus = "FAILED"
)

func (s SendStatus) String() string { return string(s) }

func (s SendStatus) IsValid() bool {
	switch s {
	case SendStatusSent, SendStatusFailed:
		return true
	}
	return false
}
