package events

import "time"

type Type string

const (
	MessageSent         Type = "message.sent"
	MessageDeleted      Type = "message.deleted"
	ReactionToggled     Type = "reaction.toggled"
	ConversationUpdated Type = "conversation.updated"
	TypingChanged       Type = "typing.changed"
)

// Event is the invalidation record every mutation publishes. Subscribed
// readers (the websocket hub, external Kafka consumers) use ConversationID
// to decide who re-reads.
type Event struct {
	Type           Type      `json:"type"`
	ConversationID string    `json:"conversation_id"`
	Payload        any       `json:"payload,omitempty"`
	Origin         string    `json:"origin,omitempty"`
	At             time.Time `json:"at"`
}

// Publisher is what services see; the Bus is the production implementation.
type Publisher interface {
	Publish(ev Event)
}
