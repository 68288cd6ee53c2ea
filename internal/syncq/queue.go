package syncq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/domain"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/events"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/metrics"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
)

var (
	// ErrOffline is returned when a drain is requested without connectivity.
	ErrOffline = errors.New("syncq: offline")
	// ErrDrainInFlight is returned when another drain holds the single-flight guard.
	ErrDrainInFlight = errors.New("syncq: drain already in progress")
	// ErrUnsupported is returned for op/entity pairs outside the dispatch table.
	ErrUnsupported = errors.New("syncq: unsupported operation for entity")
)

// supportedOps is the dispatch table: which mutations each entity accepts.
var supportedOps = map[models.SyncEntity]map[models.SyncOp]bool{
	models.EntityCompulsion: {
		models.OpCreate: true,
		models.OpUpdate: true,
		models.OpDelete: true,
	},
	models.EntityERPSession: {
		models.OpCreate: true,
		models.OpUpdate: true, // update marks the session complete
	},
	models.EntityUserProgress: {
		models.OpCreate: true, // upserts the remote profile
	},
	models.EntityAchievement: {
		models.OpCreate: true, // log-only, no remote call
	},
}

// Options tunes a Manager. Zero values fall back to defaults.
type Options struct {
	RetryCeiling    int
	DispatchTimeout time.Duration
	Policy          RetryPolicy
	Now             func() time.Time
}

// Manager buffers local mutations while offline and transmits them when
// connectivity allows, with bounded retry and a quarantine list for
// items that exhausted their budget. Both lists live in memory and are
// persisted to the KV store after every mutation; terminal transitions
// (success removal, quarantine move) go through one atomic store write
// so a crash cannot drop or duplicate an item.
type Manager struct {
	store   domain.Store
	remote  domain.RemoteClient
	bus     domain.EventPublisher
	logger  *zerolog.Logger
	policy  RetryPolicy
	ceiling int
	timeout time.Duration
	now     func() time.Time

	online   atomic.Bool
	draining atomic.Bool

	mu         sync.Mutex
	queue      []models.SyncItem
	quarantine []models.SyncItem
}

// NewManager loads any persisted queue and quarantine state from the store.
func NewManager(ctx context.Context, store domain.Store, remote domain.RemoteClient, bus domain.EventPublisher, logger *zerolog.Logger, opts Options) (*Manager, error) {
	if opts.RetryCeiling <= 0 {
		opts.RetryCeiling = models.DefaultRetryCeiling
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = models.DefaultDispatchTimeoutSeconds * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		store:   store,
		remote:  remote,
		bus:     bus,
		logger:  logger,
		policy:  opts.Policy,
		ceiling: opts.RetryCeiling,
		timeout: opts.DispatchTimeout,
		now:     opts.Now,
	}

	queue, err := m.loadList(ctx, models.KeyQueue)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	quarantine, err := m.loadList(ctx, models.KeyQuarantine)
	if err != nil {
		return nil, fmt.Errorf("load quarantine: %w", err)
	}
	m.queue = queue
	m.quarantine = quarantine
	metrics.SetQueueDepth(len(queue))

	return m, nil
}

func (m *Manager) loadList(ctx context.Context, key string) ([]models.SyncItem, error) {
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.SyncItem{}, nil
	}
	return models.DecodeSyncItems(raw)
}

// Online reports the current connectivity flag.
func (m *Manager) Online() bool { return m.online.Load() }

// SetOnline updates the connectivity flag. The offline-to-online
// transition triggers a background drain; the reverse only flips the
// flag and leaves any in-flight drain to fail item by item.
func (m *Manager) SetOnline(online bool) {
	prev := m.online.Swap(online)
	if prev == online {
		return
	}
	m.logger.Info().Bool("online", online).Msg("connectivity changed")
	if online {
		go func() {
			if err := m.Drain(context.Background()); err != nil && !errors.Is(err, ErrDrainInFlight) {
				m.logger.Warn().Err(err).Msg("reconnect drain failed")
			}
		}()
	}
}

// Enqueue snapshots the payload into a new queue item, persists the
// queue, and, when online, kicks off a drain whose terminal error (nil
// on success) is delivered on the returned channel. Callers may await
// the channel or drop it; the enqueue itself never waits on the network.
func (m *Manager) Enqueue(ctx context.Context, op models.SyncOp, entity models.SyncEntity, payload models.SyncPayload) (*models.SyncItem, <-chan error) {
	done := make(chan error, 1)

	if !supportedOps[entity][op] {
		done <- fmt.Errorf("%w: %s %s", ErrUnsupported, op, entity)
		return nil, done
	}
	if err := payload.Validate(entity); err != nil {
		done <- err
		return nil, done
	}

	now := m.now()
	item := models.SyncItem{
		ID:        models.NewSyncItemID(now),
		Op:        op,
		Entity:    entity,
		Payload:   payload,
		CreatedAt: now.UnixMilli(),
	}

	m.mu.Lock()
	m.queue = append(m.queue, item)
	depth := len(m.queue)
	err := m.persistQueueLocked(ctx)
	m.mu.Unlock()

	metrics.SetQueueDepth(depth)
	if err != nil {
		// The item is still in memory and will be re-persisted on the
		// next queue mutation.
		m.logger.Error().Err(err).Str("item", item.ID).Msg("persist queue after enqueue failed")
	}

	if m.online.Load() {
		go func() {
			err := m.Drain(context.Background())
			if errors.Is(err, ErrDrainInFlight) {
				// Another drain is already covering this item.
				err = nil
			}
			done <- err
		}()
	} else {
		done <- nil
	}

	return &item, done
}

// Drain attempts every due queue item once, in enqueue order. It is a
// no-op while another drain is in flight, while offline, or when the
// queue is empty. A failed item is never re-attempted within the same
// pass.
func (m *Manager) Drain(ctx context.Context) error {
	if !m.online.Load() {
		return ErrOffline
	}
	if !m.draining.CompareAndSwap(false, true) {
		return ErrDrainInFlight
	}
	defer m.draining.Store(false)

	m.mu.Lock()
	snapshot := make([]models.SyncItem, len(m.queue))
	copy(snapshot, m.queue)
	m.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}

	nowMillis := m.now().UnixMilli()
	processed := 0
	for i := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := snapshot[i]
		if item.NextAttemptAt > nowMillis {
			continue
		}
		processed++

		if err := m.dispatch(ctx, item); err != nil {
			metrics.IncDispatch(string(item.Entity), "failure")
			m.failItem(ctx, item.ID, err)
			continue
		}
		metrics.IncDispatch(string(item.Entity), "success")
		m.completeItem(ctx, item.ID)
	}

	m.mu.Lock()
	depth := len(m.queue)
	m.mu.Unlock()
	metrics.SetQueueDepth(depth)

	m.logger.Debug().Int("attempted", processed).Int("remaining", depth).Msg("drain pass finished")
	if m.bus != nil {
		m.bus.PublishJSON(events.EventSyncDrained, map[string]int{"attempted": processed, "remaining": depth})
	}
	return nil
}

// ForceSyncNow runs an awaited drain and reports whether the queue ended
// up empty. Offline it returns false immediately without touching the
// queue.
func (m *Manager) ForceSyncNow(ctx context.Context) (bool, error) {
	if !m.online.Load() {
		return false, ErrOffline
	}
	if err := m.Drain(ctx); err != nil && !errors.Is(err, ErrDrainInFlight) {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue) == 0, nil
}

// Pending returns a copy of the live queue in enqueue order.
func (m *Manager) Pending() []models.SyncItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SyncItem, len(m.queue))
	copy(out, m.queue)
	return out
}

// Quarantined returns a copy of the quarantine list.
func (m *Manager) Quarantined() []models.SyncItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SyncItem, len(m.quarantine))
	copy(out, m.quarantine)
	return out
}

// ReplayQuarantine is a manual recovery action: it moves every
// quarantined item back to the tail of the queue with a fresh retry
// budget. Quarantined items are never replayed automatically.
func (m *Manager) ReplayQuarantine(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.quarantine)
	if n == 0 {
		return 0, nil
	}
	for _, item := range m.quarantine {
		item.RetryCount = 0
		item.LastError = ""
		item.NextAttemptAt = 0
		m.queue = append(m.queue, item)
	}
	m.quarantine = m.quarantine[:0]

	if err := m.persistBothLocked(ctx); err != nil {
		return 0, fmt.Errorf("persist replay: %w", err)
	}
	metrics.SetQueueDepth(len(m.queue))
	m.logger.Info().Int("items", n).Msg("quarantine replayed")
	return n, nil
}

// dispatch performs the remote call for one item under a per-attempt
// timeout so a hung request cannot stall the rest of the pass.
func (m *Manager) dispatch(ctx context.Context, item models.SyncItem) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	switch item.Entity {
	case models.EntityCompulsion:
		switch item.Op {
		case models.OpCreate:
			return m.remote.CreateCompulsion(ctx, item.Payload.Compulsion)
		case models.OpUpdate:
			return m.remote.UpdateCompulsion(ctx, item.Payload.Compulsion)
		case models.OpDelete:
			return m.remote.DeleteCompulsion(ctx, item.Payload.Compulsion.ID)
		}
	case models.EntityERPSession:
		switch item.Op {
		case models.OpCreate:
			return m.remote.CreateERPSession(ctx, item.Payload.ERPSession)
		case models.OpUpdate:
			return m.remote.CompleteERPSession(ctx, item.Payload.ERPSession)
		}
	case models.EntityUserProgress:
		return m.remote.UpdateUserProgress(ctx, item.Payload.Progress)
	case models.EntityAchievement:
		// No remote endpoint for achievements yet; acknowledging locally
		// keeps the queue moving.
		m.logger.Info().Str("achievement", item.Payload.Achievement.ID).Msg("achievement recorded locally")
		return nil
	}
	return fmt.Errorf("%w: %s %s", ErrUnsupported, item.Op, item.Entity)
}

// completeItem removes a successfully transmitted item from the live queue.
func (m *Manager) completeItem(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return
	}
	m.queue = append(m.queue[:idx], m.queue[idx+1:]...)
	if err := m.persistQueueLocked(ctx); err != nil {
		m.logger.Error().Err(err).Str("item", id).Msg("persist queue after completion failed")
	}
}

// failItem increments the retry counter and either reschedules the item
// or moves it to quarantine. Permanent errors skip the remaining budget:
// replaying a malformed payload three times cannot make it valid.
func (m *Manager) failItem(ctx context.Context, id string, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return
	}
	item := &m.queue[idx]
	item.RetryCount++
	item.LastError = cause.Error()

	if isPermanent(cause) || item.RetryCount >= m.ceiling {
		quarantinedItem := *item
		m.queue = append(m.queue[:idx], m.queue[idx+1:]...)
		m.quarantine = append(m.quarantine, quarantinedItem)

		if err := m.persistBothLocked(ctx); err != nil {
			m.logger.Error().Err(err).Str("item", id).Msg("persist quarantine move failed")
		}
		metrics.IncQuarantined()
		m.logger.Warn().
			Str("item", quarantinedItem.ID).
			Str("entity", string(quarantinedItem.Entity)).
			Int("retries", quarantinedItem.RetryCount).
			Str("error", quarantinedItem.LastError).
			Msg("sync item quarantined")
		if m.bus != nil {
			m.bus.PublishJSON(events.EventSyncItemQuarantined, quarantinedItem)
		}
		return
	}

	item.NextAttemptAt = m.now().Add(m.policy.NextDelay(item.RetryCount)).UnixMilli()
	if err := m.persistQueueLocked(ctx); err != nil {
		m.logger.Error().Err(err).Str("item", id).Msg("persist queue after failure failed")
	}
}

func (m *Manager) indexLocked(id string) int {
	for i := range m.queue {
		if m.queue[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) persistQueueLocked(ctx context.Context) error {
	raw, err := models.EncodeSyncItems(m.queue)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, models.KeyQueue, raw)
}

// persistBothLocked writes queue and quarantine in one atomic store
// mutation so a crash between the two lists cannot drop or duplicate an
// item.
func (m *Manager) persistBothLocked(ctx context.Context) error {
	queueRaw, err := models.EncodeSyncItems(m.queue)
	if err != nil {
		return err
	}
	quarantineRaw, err := models.EncodeSyncItems(m.quarantine)
	if err != nil {
		return err
	}
	return m.store.SetMulti(ctx, map[string]string{
		models.KeyQueue:      queueRaw,
		models.KeyQuarantine: quarantineRaw,
	})
}

// isPermanent reports whether an error says retrying is pointless.
func isPermanent(err error) bool {
	var p interface{ Permanent() bool }
	if errors.As(err, &p) {
		return p.Permanent()
	}
	return false
}
