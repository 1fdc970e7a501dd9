package domain

import (
	"errors"
	"testing"
)

func TestParseMessageTypeFromString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input   string
		want    MessageType
		wantErr bool
	}{
		{input: "VERIFICATION", want: MessageVerification},
		{input: "password_reset", want: MessagePasswordReset},
		{input: "  event_reminder_one_day  ", want: MessageReminderOneDay},
		{input: "Event_Reminder_Two_Hour", want: MessageReminderTwoHour},
		{input: "NEWSLETTER", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseMessageTypeFromString(tc.input)
		if tc.wantErr {
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("ParseMessageTypeFromString(%q) error = %v, want ErrValidation", tc.input, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseMessageTypeFromString(%q) error = %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMessageTypeFromString(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestSendLogValidate(t *testing.T) {
	t.Parallel()

	valid := SendLog{
		ID:          "log-1",
		Recipient:   "member@campus.edu",
		MessageType: MessageVerification,
		Status:      SendStatusSent,
		Origin:      OriginInteractive,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	noRecipient := valid
	noRecipient.Recipient = "  "
	if err := noRecipient.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank recipient error = %v, want ErrValidation", err)
	}

	badAddress := valid
	badAddress.Recipient = "not-an-address"
	if err := badAddress.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad address error = %v, want ErrValidation", err)
	}

	badType := valid
	badType.MessageType = "NOPE"
	if err := badType.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad type error = %v, want ErrValidation", err)
	}

	badStatus := valid
	badStatus.Status = "PENDING"
	if err := badStatus.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad status error = %v, want ErrValidation", err)
	}
}
