// Package audit records who changed which procurement entity and how.
package audit

import (
	"context"
	"time"
)

// Action is the kind of change being recorded.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionStatus Action = "status"
)

// Entity types written to the trail.
const (
	EntityPurchaseRequest = "purchase_request"
	EntityPurchaseOrder   = "purchase_order"
	EntityInvoice         = "invoice"
)

// Entry is one audit record.
type Entry struct {
	ID         int64          `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Action     Action         `json:"action"`
	ActorID    int64          `json:"actor_id"`
	Changes    map[string]any `json:"changes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Recorder appends audit entries. Calls made inside a transaction are
// committed or rolled back with it.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	List(ctx context.Context, entityType string, entityID int64) ([]Entry, error)
}
