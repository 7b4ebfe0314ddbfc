package audit

import "time"

// Event is an immutable, append-only audit log record of a session
// lifecycle transition.
//
// Invariants:
// - Events are never updated or deleted.
// - phone_number is required; it is the session key.
// - Audit capture is best-effort; do not block request handling on
//   audit failures.
//
// Storage recommendation (Postgres):
// - Table session_audit_events with an INSERT-only policy.
// - Optional: partition by time for retention.

type Event struct {
	ID          string `json:"id" db:"id"`
	PhoneNumber string `json:"phone_number" db:"phone_number"`

	// SessionID is the carrier-assigned session identifier.
	SessionID string `json:"session_id,omitempty" db:"session_id"`

	// Type indicates the lifecycle transition being recorded.
	Type EventType `json:"type" db:"type"`

	// NodeKey is the menu node the session was on when the event fired.
	NodeKey string `json:"node_key,omitempty" db:"node_key"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeSessionStarted   EventType = "session_started"
	EventTypeSessionCompleted EventType = "session_completed"
	EventTypeSessionAborted   EventType = "session_aborted"
	EventTypeSessionExpired   EventType = "session_expired"
	EventTypeActionFailed     EventType = "action_failed"
)
