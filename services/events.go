package services

import "github.com/google/uuid"

const (
	EventMessage = "message"
	EventRead    = "read"
	EventThread  = "thread"
)

// Event is pushed to connected clients of a single user.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type EventPublisher interface {
	PublishToUser(userID uuid.UUID, event Event)
}

type noopPublisher struct{}

func (noopPublisher) PublishToUser(uuid.UUID, Event) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
