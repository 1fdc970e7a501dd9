package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campushub/smartmail/internal/domain"
	"github.com/campushub/smartmail/internal/repository"
	"github.com/campushub/smartmail/internal/template"
	"go.uber.org/zap"
)

// Reminder windows are wider than the nominal offsets: the job runs every
// minute, so a +/-1h (one-day) and +/-30m (two-hour) window guarantees a
// qualifying event is caught at least once even if ticks are delayed,
// while the reminder flag guarantees it is reminded at most once.
const (
	oneDayWindowFrom  = 23 * time.Hour
	oneDayWindowTo    = 25 * time.Hour
	twoHourWindowFrom = 90 * time.Minute
	twoHourWindowTo   = 150 * time.Minute
)

// ReminderDispatcher is the slice of the mail dispatcher the reminder job
// uses.
type ReminderDispatcher interface {
	SendOneDayReminder(ctx context.Context, recipient string, event template.EventInfo) error
	SendTwoHourReminder(ctx context.Context, recipient string, event template.EventInfo) error
}

// ReminderService scans for events entering a reminder window and fans
// out one reminder email per confirmed attendee.
type ReminderService struct {
	events     repository.EventRepository
	dispatcher ReminderDispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func NewReminderService(
	events repository.EventRepository,
	dispatcher ReminderDispatcher,
	logger *zap.Logger,
) (*ReminderService, error) {
	if events == nil {
		return nil, fmt.Errorf("event repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReminderService{
		events:     events,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Run processes both reminder windows once. Dispatch errors, including
// quota exhaustion, are contained here: the scheduler must never crash on
// a failed send.
func (s *ReminderService) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	now := s.now()

	fetchOneDay := func() ([]domain.Event, error) {
		return s.events.DueForOneDayReminder(ctx, now.Add(oneDayWindowFrom), now.Add(oneDayWindowTo))
	}
	oneDayErr := s.runWindow(ctx, windowRun{
		name:     "one_day",
		fetch:    fetchOneDay,
		dispatch: s.dispatcher.SendOneDayReminder,
		markSent: s.events.MarkOneDayReminderSent,
	})

	fetchTwoHour := func() ([]domain.Event, error) {
		return s.events.DueForTwoHourReminder(ctx, now.Add(twoHourWindowFrom), now.Add(twoHourWindowTo))
	}
	twoHourErr := s.runWindow(ctx, windowRun{
		name:     "two_hour",
		fetch:    fetchTwoHour,
		dispatch: s.dispatcher.SendTwoHourReminder,
		markSent: s.events.MarkTwoHourReminderSent,
	})

	return errors.Join(oneDayErr, twoHourErr)
}

type windowRun struct {
	name     string
	fetch    func() ([]domain.Event, error)
	dispatch func(ctx context.Context, recipient string, event template.EventInfo) error
	markSent func(ctx context.Context, id string) error
}

func (s *ReminderService) runWindow(ctx context.Context, run windowRun) error {
	events, err := run.fetch()
	if err != nil {
		return fmt.Errorf("failed to fetch events for %s reminder window: %w", run.name, err)
	}

	for i := range events {
		event := events[i]

		recipients, err := s.events.ConfirmedRecipients(ctx, event.ID)
		if err != nil {
			// Leave the flag unset so the next tick retries the whole
			// event; the window is wide enough to catch it again.
			s.logger.Error("failed to fetch reminder recipients",
				zap.String("window", run.name),
				zap.String("eventId", event.ID),
				zap.Error(err),
			)
			continue
		}

		info := template.EventInfo{
			Title:    event.Title,
			Location: event.Location,
			StartsAt: event.StartsAt,
		}

		failed := 0
		for _, recipient := range recipients {
			if err := run.dispatch(ctx, recipient.Email, info); err != nil {
				failed++
				s.logger.Warn("reminder dispatch failed for recipient",
					zap.String("window", run.name),
					zap.String("eventId", event.ID),
					zap.String("memberId", recipient.MemberID),
					zap.Error(err),
				)
			}
		}

		// The flag flips after every recipient has been attempted, even
		// with partial failures or zero recipients, so an event is
		// reminded at most once per window.
		if err := run.markSent(ctx, event.ID); err != nil {
			s.logger.Error("failed to mark reminder as sent",
				zap.String("window", run.name),
				zap.String("eventId", event.ID),
				zap.Error(err),
			)
			continue
		}

		s.logger.Info("event reminders processed",
			zap.String("window", run.name),
			zap.String("eventId", event.ID),
			zap.Int("recipients", len(recipients)),
			zap.Int("failed", failed),
		)
	}

	return nil
}
