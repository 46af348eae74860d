package models

import "time"

// ConversationSummary is a conversation enriched for the caller: resolved
// member profiles, the peer for DMs, and the caller's unread count.
type ConversationSummary struct {
	Conversation
	OtherUser    *User     `json:"other_user,omitempty"`
	Members      []User    `json:"members"`
	UnreadCount  int64     `json:"unread_count"`
	LastReadTime time.Time `json:"last_read_time"`
}

// MessageView is a message enriched with the sender's current profile. The
// name and avatar reflect the profile at read time, not a snapshot.
type MessageView struct {
	Message
	SenderName      string `json:"sender_name"`
	SenderAvatarURL string `json:"sender_avatar_url"`
}

// Typer is one actively typing member, as shown to the other members.
type Typer struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}
