// Package queue defines message payloads exchanged over the message broker,
// the publisher for store change events, and the background consumer that
// writes the audit trail.
package queue

// Actions recorded on the store.changed queue.
const (
	ActionCreated     = "created"
	ActionUpdated     = "updated"
	ActionDeactivated = "deactivated"
	ActionImported    = "imported"
)

// StoreChangedEvent is published whenever a store record changes through
// the admin surface. It carries enough for downstream consumers to log or
// trigger analytics without querying the primary database.
type StoreChangedEvent struct {
	StoreID    string `json:"store_id"`
	Action     string `json:"action"`
	Name       string `json:"name"`
	ActorID    uint64 `json:"actor_id"`
	OccurredAt string `json:"occurred_at"`
}
