package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedEvent struct {
	eventType string
	payload   []byte
}

type fakeBus struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (f *fakeBus) PublishJSON(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.events = append(f.events, capturedEvent{eventType: eventType, payload: data})
	f.mu.Unlock()
	return nil
}

func (f *fakeBus) snapshot() []capturedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedEvent(nil), f.events...)
}

func TestNewSchedulerParsesClockTime(t *testing.T) {
	l := zerolog.Nop()

	s, err := NewScheduler("09:30", nil, &l)
	require.NoError(t, err)
	assert.Equal(t, 9, s.hour)
	assert.Equal(t, 30, s.minute)

	for _, bad := range []string{"9", "25:00", "12:60", "ab:cd", "12:5:9"} {
		_, err := NewScheduler(bad, nil, &l)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestEmptyClockTimeDisablesDailyLoop(t *testing.T) {
	l := zerolog.Nop()
	s, err := NewScheduler("", nil, &l)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return immediately when disabled")
	}
}

func TestNextDaily(t *testing.T) {
	l := zerolog.Nop()
	s, err := NewScheduler("09:00", nil, &l)
	require.NoError(t, err)

	morning := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), s.NextDaily(morning))

	afternoon := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), s.NextDaily(afternoon))

	// Exactly at the slot rolls to the next day.
	atSlot := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), s.NextDaily(atSlot))
}

func TestScheduleOncePublishesReminder(t *testing.T) {
	l := zerolog.Nop()
	bus := &fakeBus{}
	s, err := NewScheduler("", bus, &l)
	require.NoError(t, err)

	s.ScheduleOnce(context.Background(), 10*time.Millisecond, "breathe")

	require.Eventually(t, func() bool { return len(bus.snapshot()) == 1 }, time.Second, 10*time.Millisecond)

	event := bus.snapshot()[0]
	assert.Equal(t, "reminder_due", event.eventType)

	var reminder Reminder
	require.NoError(t, json.Unmarshal(event.payload, &reminder))
	assert.Equal(t, "one_shot", reminder.Kind)
	assert.Equal(t, "breathe", reminder.Message)
}

func TestScheduleOnceCanceled(t *testing.T) {
	l := zerolog.Nop()
	bus := &fakeBus{}
	s, err := NewScheduler("", bus, &l)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.ScheduleOnce(ctx, 50*time.Millisecond, "never")
	cancel()

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, bus.snapshot())
}
