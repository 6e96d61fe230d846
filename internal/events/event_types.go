package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/vodhub/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionCreated   EventType = "session_created"
	EventSessionRefreshed EventType = "session_refreshed"
	EventSessionRotated   EventType = "session_rotated"
	EventSessionEnded     EventType = "session_ended"
	EventSessionsRevoked  EventType = "sessions_revoked"
	EventRefreshRejected  EventType = "refresh_rejected"
	EventLoginFailed      EventType = "login_failed"
)

// Actor identifies whose session an event concerns.
type Actor struct {
	Username string              `json:"username,omitempty"`
	Role     domain.Role         `json:"role,omitempty"`
	Kind     domain.IdentityKind `json:"kind,omitempty"`
}

// ActorOf converts an identity into an event actor.
func ActorOf(id domain.Identity) Actor {
	return Actor{Username: id.Username, Role: id.Role, Kind: id.Kind}
}

// Event represents a session lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh ID and the current time.
func NewEvent(eventType EventType, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionsRevokedPayload payload.
type SessionsRevokedPayload struct {
	Reason  string `json:"reason"`
	Revoked int    `json:"revoked"`
}

// RefreshRejectedPayload payload.
type RefreshRejectedPayload struct {
	Reason string `json:"reason"`
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}
