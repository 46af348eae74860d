package models

import "time"

// TypingIndicator is a short-lived marker, refreshed on each keystroke and
// stale ~3s after the last one. Readers filter out expired rows themselves.
type TypingIndicator struct {
	ID             string    `bson:"_id" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	ExpiresAt      time.Time `bson:"expires_at" json:"expires_at"`
}
