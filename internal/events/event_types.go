package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserCreated   EventType = "user_created"
	EventUserUpdated   EventType = "user_updated"
	EventUserDeleted   EventType = "user_deleted"
	EventUserActivated EventType = "user_activated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserCreatedPayload carries what the creation email needs without another store read.
type UserCreatedPayload struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LangKey       string `json:"lang_key"`
	ActivationKey string `json:"activation_key"`
}
