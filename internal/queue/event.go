// Package queue publishes account lifecycle events to RabbitMQ and runs the
// audit consumer that records them in a log file.
package queue

import "time"

// Event types published on the user events queue.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// UserEvent is the payload of every account lifecycle message. It carries
// enough to audit the change without querying the user store. Fields lists
// the names of changed attributes on updates; values are never included.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	ActorID    string    `json:"actor_id,omitempty"`
	Fields     []string  `json:"fields,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
