package domain

import (
	"context"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
)

// Store is the asynchronous key-value persistence layer. Values are
// JSON-encoded strings under namespaced keys.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// SetMulti writes every pair atomically: after a crash either all of
	// them are visible or none are. The sync queue relies on this for the
	// queue-to-quarantine move.
	SetMulti(ctx context.Context, pairs map[string]string) error
	Remove(ctx context.Context, key string) error
	MultiRemove(ctx context.Context, keys []string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// RemoteClient is the REST surface of the backend API. Implementations
// return errors that report Permanent() for non-retryable responses so
// the sync queue can classify failures.
type RemoteClient interface {
	CreateCompulsion(ctx context.Context, c *models.Compulsion) error
	UpdateCompulsion(ctx context.Context, c *models.Compulsion) error
	DeleteCompulsion(ctx context.Context, id string) error
	CreateERPSession(ctx context.Context, s *models.ERPSession) error
	CompleteERPSession(ctx context.Context, s *models.ERPSession) error
	UpdateUserProgress(ctx context.Context, p *models.UserProgress) error
}

// Prober answers whether the backend is reachable right now.
type Prober interface {
	Ping(ctx context.Context) error
}

// EventPublisher decouples domain services from event delivery.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Syncer is the queue surface the domain services enqueue through. The
// returned channel delivers the terminal error (or nil) of the drain the
// enqueue triggered; callers may await it or drop it.
type Syncer interface {
	Enqueue(ctx context.Context, op models.SyncOp, entity models.SyncEntity, payload models.SyncPayload) (*models.SyncItem, <-chan error)
}
