package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/domain"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/events"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/metrics"
)

// Reminder is the payload published when a reminder fires. Delivery to
// the device is the push collaborator's job; the engine only decides
// when.
type Reminder struct {
	Kind    string    `json:"kind"` // daily, one_shot
	Message string    `json:"message,omitempty"`
	DueAt   time.Time `json:"due_at"`
}

// Scheduler fires a recurring daily reminder at a fixed wall-clock time
// plus ad-hoc one-shot reminders.
type Scheduler struct {
	bus    domain.EventPublisher
	logger *zerolog.Logger
	hour   int
	minute int
	now    func() time.Time
}

// NewScheduler parses "HH:MM"; an empty string disables the daily loop
// (Start returns immediately, one-shots still work).
func NewScheduler(clockTime string, bus domain.EventPublisher, logger *zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{bus: bus, logger: logger, hour: -1, now: time.Now}
	if clockTime == "" {
		return s, nil
	}

	parts := strings.Split(clockTime, ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("notify: expected HH:MM, got %q", clockTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return nil, fmt.Errorf("notify: invalid hour in %q", clockTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("notify: invalid minute in %q", clockTime)
	}
	s.hour = hour
	s.minute = minute
	return s, nil
}

// NextDaily returns the next occurrence of the configured wall-clock
// time after the given instant.
func (s *Scheduler) NextDaily(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), s.hour, s.minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start runs the daily loop until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s.hour < 0 {
		s.logger.Info().Msg("daily reminders disabled")
		return
	}
	s.logger.Info().Int("hour", s.hour).Int("minute", s.minute).Msg("reminder scheduler started")
	defer s.logger.Info().Msg("reminder scheduler stopped")

	for {
		next := s.NextDaily(s.now())
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fire(Reminder{Kind: "daily", Message: "Time for today's check-in", DueAt: next})
		}
	}
}

// ScheduleOnce fires a single reminder after the delay. Fire-and-forget;
// canceling ctx cancels the pending reminder.
func (s *Scheduler) ScheduleOnce(ctx context.Context, delay time.Duration, message string) {
	dueAt := s.now().Add(delay)
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			s.fire(Reminder{Kind: "one_shot", Message: message, DueAt: dueAt})
		}
	}()
}

func (s *Scheduler) fire(reminder Reminder) {
	metrics.IncReminderFired()
	s.logger.Info().Str("kind", reminder.Kind).Time("due_at", reminder.DueAt).Msg("reminder fired")
	if s.bus != nil {
		s.bus.PublishJSON(events.EventReminderDue, reminder)
	}
}
