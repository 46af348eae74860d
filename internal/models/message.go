package models

import "time"

// Reaction is one (user, emoji) pair on a message. The reactions list never
// holds two entries with the same pair; toggling removes or appends.
type Reaction struct {
	UserID string `bson:"user_id" json:"user_id"`
	Emoji  string `bson:"emoji" json:"emoji"`
}

// Message belongs to one conversation. Soft delete keeps the row (the UI
// renders a placeholder from IsDeleted); ExpiresAt is set only when the
// conversation was ephemeral at send time and is never updated afterwards.
type Message struct {
	ID             string     `bson:"_id" json:"id"`
	ConversationID string     `bson:"conversation_id" json:"conversation_id"`
	SenderID       string     `bson:"sender_id" json:"sender_id"`
	Content        string     `bson:"content" json:"content"`
	IsDeleted      bool       `bson:"is_deleted" json:"is_deleted"`
	ExpiresAt      *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	Reactions      []Reaction `bson:"reactions" json:"reactions"`
	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
}

// Expired reports whether the message has passed its expiry at the given time.
func (m *Message) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now)
}
