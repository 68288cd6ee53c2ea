package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/domain"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
)

var ErrNotFound = errors.New("journal: compulsion entry not found")

// Service is the compulsion log: local-first CRUD over the KV store with
// every mutation mirrored onto the sync queue.
type Service struct {
	store  domain.Store
	syncer domain.Syncer
	logger *zerolog.Logger
	now    func() time.Time
}

func NewService(store domain.Store, syncer domain.Syncer, logger *zerolog.Logger) *Service {
	return &Service{store: store, syncer: syncer, logger: logger, now: time.Now}
}

// Log records a new compulsion entry.
func (s *Service) Log(ctx context.Context, userID string, entry models.Compulsion) (*models.Compulsion, error) {
	if entry.Type == "" {
		return nil, fmt.Errorf("journal: compulsion type is required")
	}

	now := s.now()
	entry.ID = uuid.NewString()
	entry.UserID = userID
	entry.CreatedAt = now
	entry.UpdatedAt = now

	entries, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries = append(entries, entry)
	if err := s.persist(ctx, userID, entries); err != nil {
		return nil, err
	}

	snapshot := entry
	s.syncer.Enqueue(ctx, models.OpCreate, models.EntityCompulsion, models.SyncPayload{Compulsion: &snapshot})
	return &entry, nil
}

// Update rewrites an existing entry's mutable fields.
func (s *Service) Update(ctx context.Context, userID string, entry models.Compulsion) (*models.Compulsion, error) {
	entries, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := s.index(entries, entry.ID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, entry.ID)
	}

	entry.UserID = userID
	entry.CreatedAt = entries[idx].CreatedAt
	entry.UpdatedAt = s.now()
	entries[idx] = entry

	if err := s.persist(ctx, userID, entries); err != nil {
		return nil, err
	}

	snapshot := entry
	s.syncer.Enqueue(ctx, models.OpUpdate, models.EntityCompulsion, models.SyncPayload{Compulsion: &snapshot})
	return &entry, nil
}

// Delete removes an entry locally and queues the remote delete.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	entries, err := s.List(ctx, userID)
	if err != nil {
		return err
	}

	idx := s.index(entries, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed := entries[idx]
	entries = append(entries[:idx], entries[idx+1:]...)

	if err := s.persist(ctx, userID, entries); err != nil {
		return err
	}

	// The remote delete only needs the id; carry a minimal snapshot.
	s.syncer.Enqueue(ctx, models.OpDelete, models.EntityCompulsion, models.SyncPayload{
		Compulsion: &models.Compulsion{ID: removed.ID, UserID: userID},
	})
	return nil
}

// List returns the user's entries in log order.
func (s *Service) List(ctx context.Context, userID string) ([]models.Compulsion, error) {
	raw, ok, err := s.store.Get(ctx, models.KeyCompulsions(userID))
	if err != nil {
		return nil, fmt.Errorf("get compulsion log: %w", err)
	}
	if !ok {
		return []models.Compulsion{}, nil
	}
	var entries []models.Compulsion
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode compulsion log: %w", err)
	}
	return entries, nil
}

func (s *Service) index(entries []models.Compulsion, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) persist(ctx context.Context, userID string, entries []models.Compulsion) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode compulsion log: %w", err)
	}
	if err := s.store.Set(ctx, models.KeyCompulsions(userID), string(data)); err != nil {
		return fmt.Errorf("persist compulsion log: %w", err)
	}
	return nil
}
