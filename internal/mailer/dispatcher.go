package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campushub/smartmail/internal/domain"
	"github.com/campushub/smartmail/internal/observability"
	"github.com/campushub/smartmail/internal/provider"
	"github.com/campushub/smartmail/internal/repository"
	"github.com/campushub/smartmail/internal/template"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProviderSpec pairs a provider id with its fixed daily send quota.
// Slice order defines priority: the first provider under quota is tried
// first, the rest only serve the single fallback pass.
type ProviderSpec struct {
	ID         string
	DailyLimit int
}

// Renderer turns (message type, data) into a subject and HTML body.
type Renderer interface {
	Render(messageType domain.MessageType, data template.Data) (string, string, error)
}

// Dispatcher delivers templated emails through an ordered list of
// quota-limited providers, falling back once on a failed attempt and
// recording usage and a log row for every attempt.
type Dispatcher struct {
	specs    []ProviderSpec
	adapters map[string]provider.Provider
	usage    repository.UsageRepository
	logs     repository.SendLogRepository
	renderer Renderer
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewDispatcher(
	specs []ProviderSpec,
	adapters []provider.Provider,
	usage repository.UsageRepository,
	logs repository.SendLogRepository,
	renderer Renderer,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one provider spec is required")
	}
	if usage == nil {
		return nil, fmt.Errorf("usage repository is required")
	}
	if logs == nil {
		return nil, fmt.Errorf("send log repository is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	byID := make(map[string]provider.Provider, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		byID[adapter.ID()] = adapter
	}

	for _, spec := range specs {
		if strings.TrimSpace(spec.ID) == "" {
			return nil, fmt.Errorf("provider spec with empty id")
		}
		if spec.DailyLimit <= 0 {
			return nil, fmt.Errorf("provider %q has non-positive daily limit %d", spec.ID, spec.DailyLimit)
		}
		if _, ok := byID[spec.ID]; !ok {
			return nil, fmt.Errorf("no adapter configured for provider %q", spec.ID)
		}
	}

	return &Dispatcher{
		specs:    specs,
		adapters: byID,
		usage:    usage,
		logs:     logs,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// SendVerification dispatches the account verification email for an
// interactive registration flow.
func (d *Dispatcher) SendVerification(ctx context.Context, recipient string, data template.Data) error {
	return d.Send(ctx, domain.MessageVerification, recipient, domain.OriginInteractive, data)
}

// SendPasswordReset dispatches the password reset email for an
// interactive reset flow.
func (d *Dispatcher) SendPasswordReset(ctx context.Context, recipient string, data template.Data) error {
	return d.Send(ctx, domain.MessagePasswordReset, recipient, domain.OriginInteractive, data)
}

// SendOneDayReminder dispatches the T-24h event reminder on behalf of the
// scheduler.
func (d *Dispatcher) SendOneDayReminder(ctx context.Context, recipient string, event template.EventInfo) error {
	return d.Send(ctx, domain.MessageReminderOneDay, recipient, domain.OriginScheduler, template.Data{Event: &event})
}

// SendTwoHourReminder dispatches the T-2h event reminder on behalf of the
// scheduler.
func (d *Dispatcher) SendTwoHourReminder(ctx context.Context, recipient string, event template.EventInfo) error {
	return d.Send(ctx, domain.MessageReminderTwoHour, recipient, domain.OriginScheduler, template.Data{Event: &event})
}

// Send picks the first provider under its daily quota, attempts delivery,
// and on a failed attempt makes exactly one fallback pass over the
// remaining providers in priority order. It returns
// domain.ErrQuotaExhausted when no provider is under quota at all, and
// domain.ErrDeliveryFailed when the attempt and its fallback both failed.
func (d *Dispatcher) Send(
	ctx context.Context,
	messageType domain.MessageType,
	recipient string,
	origin string,
	data template.Data,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return fmt.Errorf("%w: recipient is required", domain.ErrValidation)
	}
	if !messageType.IsValid() {
		return fmt.Errorf("%w: invalid message type %q", domain.ErrValidation, messageType)
	}
	if origin == "" {
		origin = domain.OriginInteractive
	}

	subject, body, err := d.renderer.Render(messageType, data)
	if err != nil {
		return fmt.Errorf("failed to render %s email: %w", messageType, err)
	}
	msg := provider.Email{To: recipient, Subject: subject, HTMLBody: body}

	day := domain.UsageDay(d.now())

	first, err := d.firstUnderQuota(ctx, day, "")
	if err != nil {
		return err
	}
	if first == nil {
		d.recordExhausted(ctx, messageType, recipient, origin)
		return domain.ErrQuotaExhausted
	}

	firstErr := d.attemptOnce(ctx, *first, messageType, msg, origin)
	if firstErr == nil {
		return nil
	}

	d.logger.Warn("mail attempt failed, entering fallback pass",
		zap.String("provider", first.ID),
		zap.String("messageType", messageType.String()),
		zap.Error(firstErr),
	)
	if d.metrics != nil {
		d.metrics.IncFallback(first.ID)
	}

	// Single fallback pass: the remaining providers in priority order,
	// first one still under quota gets exactly one attempt.
	fallback, err := d.firstUnderQuota(ctx, day, first.ID)
	if err != nil {
		return err
	}
	if fallback == nil {
		return fmt.Errorf("%w: no fallback provider under quota after %s failed", domain.ErrDeliveryFailed, first.ID)
	}

	if fallbackErr := d.attemptOnce(ctx, *fallback, messageType, msg, origin); fallbackErr != nil {
		return fmt.Errorf("%w: fallback provider %s also failed: %v", domain.ErrDeliveryFailed, fallback.ID, fallbackErr)
	}

	return nil
}

// firstUnderQuota returns the first configured provider whose recorded
// attempts for the day are below its limit, skipping excludeID. Nil with
// no error means every candidate is at quota.
func (d *Dispatcher) firstUnderQuota(ctx context.Context, day string, excludeID string) (*ProviderSpec, error) {
	for i := range d.specs {
		spec := d.specs[i]
		if spec.ID == excludeID {
			continue
		}

		attempts, err := d.usage.Attempts(ctx, spec.ID, day)
		if err != nil {
			return nil, fmt.Errorf("failed to read usage for provider %s: %w", spec.ID, err)
		}
		if attempts < spec.DailyLimit {
			return &spec, nil
		}
	}
	return nil, nil
}

// attemptOnce performs one provider attempt and records it. The log row
// and the usage increment are written for both outcomes; persistence
// errors on those writes are logged but never change the send outcome.
func (d *Dispatcher) attemptOnce(
	ctx context.Context,
	spec ProviderSpec,
	messageType domain.MessageType,
	msg provider.Email,
	origin string,
) error {
	adapter := d.adapters[spec.ID]

	start := d.now()
	_, sendErr := adapter.Send(ctx, msg)
	if d.metrics != nil {
		d.metrics.ObserveSendDuration(spec.ID, d.now().Sub(start))
	}

	now := d.now().UTC()
	d.appendLog(ctx, &spec.ID, messageType, msg.To, origin, sendErr)

	if err := d.usage.RecordAttempt(ctx, spec.ID, domain.UsageDay(now), now.Hour(), sendErr == nil); err != nil {
		d.logger.Error("failed to record provider usage",
			zap.String("provider", spec.ID),
			zap.Error(err),
		)
	}

	if sendErr != nil {
		if d.metrics != nil {
			d.metrics.IncEmailFailed(spec.ID, messageType.String())
		}
		return sendErr
	}

	if d.metrics != nil {
		d.metrics.IncEmailSent(spec.ID, messageType.String())
	}
	return nil
}

func (d *Dispatcher) recordExhausted(ctx context.Context, messageType domain.MessageType, recipient string, origin string) {
	d.logger.Error("all mail providers at daily quota",
		zap.String("messageType", messageType.String()),
	)
	if d.metrics != nil {
		d.metrics.IncQuotaExhausted()
	}
	d.appendLog(ctx, nil, messageType, recipient, origin, domain.ErrQuotaExhausted)
}

func (d *Dispatcher) appendLog(
	ctx context.Context,
	providerID *string,
	messageType domain.MessageType,
	recipient string,
	origin string,
	sendErr error,
) {
	entry := &domain.SendLog{
		ID:          uuid.NewString(),
		ProviderID:  providerID,
		Recipient:   recipient,
		MessageType: messageType,
		Status:      domain.SendStatusSent,
		Origin:      origin,
		CreatedAt:   d.now().UTC(),
	}
	if sendErr != nil {
		entry.Status = domain.SendStatusFailed
		detail := sendErr.Error()
		entry.Error = &detail
	}

	if err := d.logs.Append(ctx, entry); err != nil {
		d.logger.Error("failed to append send log entry",
			zap.String("recipient", recipient),
			zap.String("messageType", messageType.String()),
			zap.Error(err),
		)
	}
}
