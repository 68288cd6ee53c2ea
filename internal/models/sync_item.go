package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncOp is the kind of remote mutation a queue item carries.
type SyncOp string

const (
	OpCreate SyncOp = "create"
	OpUpdate SyncOp = "update"
	OpDelete SyncOp = "delete"
)

// SyncEntity identifies which remote resource a queue item targets.
type SyncEntity string

const (
	EntityCompulsion   SyncEntity = "compulsion"
	EntityERPSession   SyncEntity = "erp_session"
	EntityUserProgress SyncEntity = "user_progress"
	EntityAchievement  SyncEntity = "achievement"
)

// SyncPayload is a tagged union keyed by the item's entity. Exactly one
// field is set; it is a snapshot taken at enqueue time, never a live
// reference.
type SyncPayload struct {
	Compulsion  *Compulsion   `json:"compulsion,omitempty"`
	ERPSession  *ERPSession   `json:"erp_session,omitempty"`
	Progress    *UserProgress `json:"progress,omitempty"`
	Achievement *Achievement  `json:"achievement,omitempty"`
}

// Validate checks that the payload variant matches the entity tag.
func (p SyncPayload) Validate(entity SyncEntity) error {
	switch entity {
	case EntityCompulsion:
		if p.Compulsion == nil {
			return fmt.Errorf("payload missing compulsion variant")
		}
	case EntityERPSession:
		if p.ERPSession == nil {
			return fmt.Errorf("payload missing erp_session variant")
		}
	case EntityUserProgress:
		if p.Progress == nil {
			return fmt.Errorf("payload missing progress variant")
		}
	case EntityAchievement:
		if p.Achievement == nil {
			return fmt.Errorf("payload missing achievement variant")
		}
	default:
		return fmt.Errorf("unknown sync entity: %s", entity)
	}
	return nil
}

// SyncItem is a pending local mutation awaiting transmission.
type SyncItem struct {
	ID            string      `json:"id"`
	Op            SyncOp      `json:"op"`
	Entity        SyncEntity  `json:"entity"`
	Payload       SyncPayload `json:"payload"`
	CreatedAt     int64       `json:"created_at"` // unix millis
	RetryCount    int         `json:"retry_count"`
	LastError     string      `json:"last_error,omitempty"`
	NextAttemptAt int64       `json:"next_attempt_at,omitempty"` // unix millis, 0 = due now
}

// NewSyncItemID builds a queue item id from the creation instant plus a
// random suffix. Assigned once, never reused.
func NewSyncItemID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// EncodeSyncItems serializes a queue or quarantine list for the KV store.
func EncodeSyncItems(items []SyncItem) (string, error) {
	if items == nil {
		items = []SyncItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode sync items: %w", err)
	}
	return string(data), nil
}

// DecodeSyncItems is the inverse of EncodeSyncItems; empty input yields
// an empty list rather than an error.
func DecodeSyncItems(raw string) ([]SyncItem, error) {
	if raw == "" {
		return []SyncItem{}, nil
	}
	var items []SyncItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode sync items: %w", err)
	}
	return items, nil
}
