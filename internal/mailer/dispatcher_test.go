package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campushub/smartmail/internal/domain"
	"github.com/campushub/smartmail/internal/provider"
	"github.com/campushub/smartmail/internal/template"
)

type fakeUsageRepo struct {
	attemptsFn      func(ctx context.Context, providerID string, day string) (int, error)
	recordAttemptFn func(ctx context.Context, providerID string, day string, hour int, success bool) error
	dayUsageFn      func(ctx context.Context, day string) ([]domain.ProviderUsage, error)
}

func (f *fakeUsageRepo) Attempts(ctx context.Context, providerID string, day string) (int, error) {
	if f.attemptsFn != nil {
		return f.attemptsFn(ctx, providerID, day)
	}
	return 0, nil
}

func (f *fakeUsageRepo) RecordAttempt(ctx context.Context, providerID string, day string, hour int, success bool) error {
	if f.recordAttemptFn != nil {
		return f.recordAttemptFn(ctx, providerID, day, hour, success)
	}
	return nil
}

func (f *fakeUsageRepo) DayUsage(ctx context.Context, day string) ([]domain.ProviderUsage, error) {
	if f.dayUsageFn != nil {
		return f.dayUsageFn(ctx, day)
	}
	return nil, nil
}

type fakeSendLogRepo struct {
	appendFn func(ctx context.Context, l *domain.SendLog) error
	recentFn func(ctx context.Context, limit int) ([]domain.SendLog, error)
}

func (f *fakeSendLogRepo) Append(ctx context.Context, l *domain.SendLog) error {
	if f.appendFn != nil {
		return f.appendFn(ctx, l)
	}
	return nil
}

func (f *fakeSendLogRepo) Recent(ctx context.Context, limit int) ([]domain.SendLog, error) {
	if f.recentFn != nil {
		return f.recentFn(ctx, limit)
	}
	return nil, nil
}

type fakeRenderer struct {
	renderFn func(messageType domain.MessageType, data template.Data) (string, string, error)
}

func (f *fakeRenderer) Render(messageType domain.MessageType, data template.Data) (string, string, error) {
	if f.renderFn != nil {
		return f.renderFn(messageType, data)
	}
	return "subject", "<p>body</p>", nil
}

type fakeProvider struct {
	id     string
	sendFn func(ctx context.Context, msg provider.Email) (*provider.SendResult, error)
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) Send(ctx context.Context, msg provider.Email) (*provider.SendResult, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.SendResult{StatusCode: 200}, nil
}

func threeProviderSpecs() []ProviderSpec {
	return []ProviderSpec{
		{ID: "smtp-primary", DailyLimit: 300},
		{ID: "brevo", DailyLimit: 100},
		{ID: "smtp-backup", DailyLimit: 100},
	}
}

func adaptersFor(sends map[string]func(ctx context.Context, msg provider.Email) (*provider.SendResult, error)) []provider.Provider {
	adapters := make([]provider.Provider, 0, len(sends))
	for id, fn := range sends {
		adapters = append(adapters, &fakeProvider{id: id, sendFn: fn})
	}
	return adapters
}

func TestNewDispatcherRequiresAdapterPerSpec(t *testing.T) {
	t.Parallel()

	adapters := []provider.Provider{&fakeProvider{id: "smtp-primary"}}
	_, err := NewDispatcher(threeProviderSpecs(), adapters, &fakeUsageRepo{}, &fakeSendLogRepo{}, &fakeRenderer{}, nil)
	if err == nil {
		t.Fatal("expected error for spec without adapter")
	}
}

func TestNewDispatcherRejectsNonPositiveLimit(t *testing.T) {
	t.Parallel()

	specs := []ProviderSpec{{ID: "smtp-primary", DailyLimit: 0}}
	adapters := []provider.Provider{&fakeProvider{id: "smtp-primary"}}
	_, err := NewDispatcher(specs, adapters, &fakeUsageRepo{}, &fakeSendLogRepo{}, &fakeRenderer{}, nil)
	if err == nil {
		t.Fatal("expected error for zero daily limit")
	}
}

func TestSendUsesFirstProviderUnderQuota(t *testing.T) {
	t.Parallel()

	sentVia := ""
	adapters := adaptersFor(map[string]func(ctx context.Context, msg provider.Email) (*provider.SendResult, error){
		"smtp-primary": func(ctx context.Context, msg provider.Email) (*provider.SendResult, error) {
			sentVia = "smtp-primary"
			return &provider.SendResult{StatusCode: 250}, nil
		},
		"brevo":       nil,
		"smtp-backup": nil,
	})

	var logged []domain.SendLog
	logs := &fakeSendLogRepo{
		appendFn: func(ctx context.Context, l *domain.SendLog) error {
			logged = append(logged, *l)
			return nil
		},
	}

	recorded := 0
	usage := &fakeUsageRepo{
		recordAttemptFn: func(ctx context.Context, providerID string, day string, hour int, success bool) error {
			recorded++
			if providerID != "smtp-primary" {
				t.Fatalf("recorded provider = %s, want smtp-primary", providerID)
			}
			if !success {
				t.Fatal("attempt should be recorded as success")
			}
			return nil
		},
	}

	d, err := NewDispatcher(threeProviderSpecs(), adapters, usage, logs, &fakeRenderer{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	if err := d.SendVerification(context.Background(), "member@campus.edu", template.Data{Name: "Ada"}); err != nil {
		t.Fatalf("SendVerification() error = %v", err)
	}

	if sentVia != "smtp-primary" {
		t.Fatalf("sent via %q, want smtp-primary", sentVia)
	}
	if recorded != 1 {
		t.Fatalf("usage records = %d, want 1", recorded)
	}
	if len(logged) != 1 {
		t.Fatalf("log rows = %d, want 1", len(logged))
	}
	row := logged[0]
	if row.ProviderID == nil || *row.ProviderID != "smtp-primary" {
		t.Fatalf("log provider = %v, want smtp-primary", row.ProviderID)
	}
	if row.Status != domain.SendStatusSent {
		t.Fatalf("log status = %s, want SENT", row.Status)
	}
	if row.Origin != domain.OriginInteractive {
		t.Fatalf("log origin = %s, want interactive", row.Origin)
	}
	if row.MessageType != domain.MessageVerification {
		t.Fatalf("log message type = %s, want VERIFICATION", row.MessageType)
	}
}

func TestSendSkipsProviderAtQuota(t *testing.T) {
	t.Parallel()

	sentVia := ""
	adapters := adaptersFor(map[string]func(ctx context.Context, msg provider.Email) (*provider.SendResult, error){
		"smtp-primary": func(ctx context.Context, msg provider.Email) (*provider.SendResult, error) {
			t.Fatal("smtp-primary is at quota and must not be attempted")
			return nil, nil
		},
		"brevo": func(ctx context.Context, msg provider.Email) (*provider.SendResult, error) {
			sentVia = "brevo"
			return &provider.SendResult{StatusCode: 201}, nil
		},
		"smtp-backup": nil,
	})

	usage := &fakeUsageRepo{
		attemptsFn: func(ctx context.Context, providerID string, day string) (int, error) {
			if providerID == "smtp-primary" {
				return 300, nil
			}
			return 0, nil
		},
	}

	d, err := NewDispatcher(threeProviderSpecs(), adapters, usage, &fakeSendLogRepo{}, &fakeRenderer{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	if err := d.SendPasswordReset(context.Background(), "member@campus.edu", template.Data{Token: "tok"}); err != nil {
		t.Fatalf("SendPasswordReset() error = %v", err)
	}
	if sentVia != "brevo" {
		t.Fatalf("sent via %q, want brevo", sentVia)
	}
}

func TestSendFallsBackOnceOnFailedAttempt(t *testing.T) {
	t.Parallel()

	attempts := make([]string, 0, 2)
	adapters := adaptersFor(map[string]func(ctx context.Context, msg provider.Email) (*provider.SendResult, error){
		"smtp-primary": func(ctx context.Context, msg provider.Email) (*provider.SendResult, error) {
			attempts = append(attempts, "smtp-primary")
			return nil, errors.New("connection refused")
		},
		"brevo": func(ctx context.Context, msg provider.Email) (*provider.SendResult, error) {
			attempts = append(attempts, "brevo")
			return &provider.SendResult{StatusCode: 201}, nil
		},
		"smtp-backup": func(ctx context.Context, msg provider.Email) (*provider.SendResult, error) {
			attempts = append(attempts, "smtp-backup")
			return &provider.SendResult{StatusCode: 250}, nil
		},
	})

	var logged []domain.SendLog
	logs := &fakeSendLogRepo{
		appendFn: func(ctx context.Context, l *domain.SendLog) error {
			logged = append(logged, *l)
			return nil
		},
	}

	d, err := NewDispatcher(threeProviderSpecs(), adapters, &fakeUsageRepo{}, logs, &fakeRenderer{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	if err := d.SendVerification(context.Background(), "member@campus.edu", template.Data{}); err != nil {
		t.Fatalf("SendVerification() error = %v, want fallback success", err)
	}

	if len(attempts) != 2 || attempts[0] != "smtp-primary" || attempts[1] != "brevo" {
		t.Fatalf("attempts = %v, want [smtp-primary brevo]", attempts)
	}
	if len(logged) != 2 {
		t.Fatalf("log rows = %d, want 2", len(logged))
	}
	if logged[0].Status != domain.SendStatusFailed {
		t.Fatalf("first log status = %s, want FAILED", logged[0].Status)
	}
	if logged[0].Error == nil {
		t.Fatal("failed log row should carry the error detail")
	}
	if logged[1].Status != domain.SendStatusSent {
		t.Fatalf("second log status = %s, want SENT", logged[1].Status)
	}
}

func TestSendFallbackFailureReturnsDeliveryFailed(t *testing.T) {
	t.Parallel()

	attempts := 0
	failing := func(ctx context.Context, msg provider.Email) (*provider.SendResult, error) {
		attempts++
		return nil, errors.New("smtp timeout")
	}
	adapters := adaptersFor(map[string]func(ctx context.Context, msg provider.Email) (*provider.SendResult, error){
		"smtp-primary": failing,
		"brevo":        failing,
		"smtp-backup":  failing,
	})

	d, err := NewDispatcher(threeProviderSpecs(), adapters, &fakeUsageRepo{}, &fakeSendLogRepo{}, &fakeRenderer{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	err = d.SendVerification(context.Background(), "member@campus.edu", template.Data{})
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("error = %v, want ErrDeliveryFailed", err)
	}

	// Exactly one fallback pass: two attempts, never a third.
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestSendNoFallbackCandidateReturnsDeliveryFailed(t *testing.T) {
	t.Parallel()

	adapters := adaptersFor(map[string]func(ctx context.Context, msg provider.Email) (*provider.SendResult, error){
		"smtp-primary": func(ctx context.Context, msg provider.Email) (*provider.SendResult, error) {
			return nil, errors.New("connection refused")
		},
		"brevo":       nil,
		"smtp-backup": nil,
	})

	usage := &fakeUsageRepo{
		attemptsFn: func(ctx context.Context, providerID string, day string) (int, error) {
			// Everyone except the failing primary is already at quota.
			if providerID == "smtp-primary" {
				return 0, nil
			}
			return 100, nil
		},
	}

	d, err := NewDispatcher(threeProviderSpecs(), adapters, usage, &fakeSendLogRepo{}, &fakeRenderer{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	err = d.SendVerification(context.Background(), "member@campus.edu", template.Data{})
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("error = %v, want ErrDeliveryFailed", err)
	}
}

func TestSendQuotaExhaustedLogsWithoutProvider(t *testing.T) {
	t.Parallel()

	adapters := adaptersFor(map[string]func(ctx context.Context, msg provider.Email) (*provider.SendResult, error){
		"smtp-primary": func(ctx context.Context, msg provider.Email) (*provider.SendResult, error) {
			t.Fatal("no provider should be attempted when all are at quota")
			return nil, nil
		},
		"brevo":       nil,
		"smtp-backup": nil,
	})

	usage := &fakeUsageRepo{
		attemptsFn: func(ctx context.Context, providerID string, day string) (int, error) {
			return 1000, nil
		},
	}

	var logged []domain.SendLog
	logs := &fakeSendLogRepo{
		appendFn: func(ctx context.Context, l *domain.SendLog) error {
			logged = append(logged, *l)
			return nil
		},
	}

	d, err := NewDispatcher(threeProviderSpecs(), adapters, usage, logs, &fakeRenderer{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	err = d.SendOneDayReminder(context.Background(), "member@campus.edu", template.EventInfo{Title: "Hack Night", StartsAt: time.Now()})
	if !errors.Is(err, domain.ErrQuotaExhausted) {
		t.Fatalf("error = %v, want ErrQuotaExhausted", err)
	}

	if len(logged) != 1 {
		t.Fatalf("log rows = %d, want 1", len(logged))
	}
	row := logged[0]
	if row.ProviderID != nil {
		t.Fatalf("log provider = %v, want nil", *row.ProviderID)
	}
	if row.Status != domain.SendStatusFailed {
		t.Fatalf("log status = %s, want FAILED", row.Status)
	}
	if row.Origin != domain.OriginScheduler {
		t.Fatalf("log origin = %s, want scheduler", row.Origin)
	}
}

func TestSendRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	adapters := adaptersFor(map[string]func(ctx context.Context, msg provider.Email) (*provider.SendResult, error){
		"smtp-primary": nil,
		"brevo":        nil,
		"smtp-backup":  nil,
	})

	d, err := NewDispatcher(threeProviderSpecs(), adapters, &fakeUsageRepo{}, &fakeSendLogRepo{}, &fakeRenderer{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	if err := d.Send(context.Background(), domain.MessageVerification, "   ", domain.OriginInteractive, template.Data{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank recipient error = %v, want ErrValidation", err)
	}
	if err := d.Send(context.Background(), domain.MessageType("NOPE"), "member@campus.edu", domain.OriginInteractive, template.Data{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad message type error = %v, want ErrValidation", err)
	}
}

func TestSendPersistenceErrorsDoNotMaskOutcome(t *testing.T) {
	t.Parallel()

	adapters := adaptersFor(map[string]func(ctx context.Context, msg provider.Email) (*provider.SendResult, error){
		"smtp-primary": nil,
		"brevo":        nil,
		"smtp-backup":  nil,
	})

	usage := &fakeUsageRepo{
		recordAttemptFn: func(ctx context.Context, providerID string, day string, hour int, success bool) error {
			return errors.New("usage table unavailable")
		},
	}
	logs := &fakeSendLogRepo{
		appendFn: func(ctx context.Context, l *domain.SendLog) error {
			return errors.New("log table unavailable")
		},
	}

	d, err := NewDispatcher(threeProviderSpecs(), adapters, usage, logs, &fakeRenderer{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	if err := d.SendVerification(context.Background(), "member@campus.edu", template.Data{}); err != nil {
		t.Fatalf("SendVerification() error = %v, want nil despite persistence failures", err)
	}
}
