package erp

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/storage"
)

type enqueued struct {
	op      models.SyncOp
	entity  models.SyncEntity
	payload models.SyncPayload
}

type fakeSyncer struct {
	items []enqueued
}

func (f *fakeSyncer) Enqueue(_ context.Context, op models.SyncOp, entity models.SyncEntity, payload models.SyncPayload) (*models.SyncItem, <-chan error) {
	f.items = append(f.items, enqueued{op: op, entity: entity, payload: payload})
	done := make(chan error, 1)
	done <- nil
	return &models.SyncItem{ID: "queued", Op: op, Entity: entity, Payload: payload}, done
}

func newTestSessionService(t *testing.T) (*SessionService, *fakeSyncer, *time.Time) {
	t.Helper()
	l := zerolog.Nop()
	syncer := &fakeSyncer{}
	svc := NewSessionService(storage.NewMemoryStore(), syncer, NewCatalog(), &l)
	current := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }
	return svc, syncer, &current
}

func TestCatalogLookup(t *testing.T) {
	catalog := NewCatalog()

	require.NotEmpty(t, catalog.All())

	exercise, ok := catalog.ByID("check_door")
	require.True(t, ok)
	assert.Equal(t, "checking", exercise.Category)

	_, ok = catalog.ByID("nope")
	assert.False(t, ok)

	checking := catalog.ByCategory("checking")
	assert.NotEmpty(t, checking)
	for _, e := range checking {
		assert.Equal(t, "checking", e.Category)
	}
}

func TestStartSession(t *testing.T) {
	svc, syncer, _ := newTestSessionService(t)
	ctx := context.Background()

	session, err := svc.Start(ctx, "u1", "check_door", 7)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "checking", session.Category)
	assert.Equal(t, 7, session.AnxietyStart)
	assert.False(t, session.Completed)

	sessions, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	require.Len(t, syncer.items, 1)
	assert.Equal(t, models.OpCreate, syncer.items[0].op)
	assert.Equal(t, models.EntityERPSession, syncer.items[0].entity)
	assert.Equal(t, session.ID, syncer.items[0].payload.ERPSession.ID)
}

func TestStartUnknownExercise(t *testing.T) {
	svc, syncer, _ := newTestSessionService(t)

	_, err := svc.Start(context.Background(), "u1", "does_not_exist", 5)
	assert.ErrorIs(t, err, ErrUnknownExercise)
	assert.Empty(t, syncer.items)
}

func TestCompleteSession(t *testing.T) {
	svc, syncer, current := newTestSessionService(t)
	ctx := context.Background()

	session, err := svc.Start(ctx, "u1", "check_door", 7)
	require.NoError(t, err)

	*current = current.Add(5 * time.Minute)
	completed, err := svc.Complete(ctx, "u1", session.ID, 9, 3)
	require.NoError(t, err)

	assert.True(t, completed.Completed)
	assert.Equal(t, 300, completed.Duration)
	assert.Equal(t, 9, completed.AnxietyPeak)
	assert.Equal(t, 3, completed.AnxietyEnd)
	require.NotNil(t, completed.CompletedAt)

	require.Len(t, syncer.items, 2)
	assert.Equal(t, models.OpUpdate, syncer.items[1].op)
	assert.True(t, syncer.items[1].payload.ERPSession.Completed)
}

func TestCompleteUnknownSession(t *testing.T) {
	svc, _, _ := newTestSessionService(t)

	_, err := svc.Complete(context.Background(), "u1", "missing", 5, 2)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCompleteTwice(t *testing.T) {
	svc, _, _ := newTestSessionService(t)
	ctx := context.Background()

	session, err := svc.Start(ctx, "u1", "check_door", 7)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, "u1", session.ID, 8, 2)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, "u1", session.ID, 8, 2)
	assert.ErrorIs(t, err, ErrAlreadyComplete)
}
