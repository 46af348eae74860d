package models

import "time"

// Conversation is either a DM (exactly two members, IsGroup=false) or a
// group (GroupAdmin set, IsGroup=true). DMKey is present only on DMs and is
// unique, so at most one DM exists per pair of users.
type Conversation struct {
	ID                 string    `bson:"_id" json:"id"`
	IsGroup            bool      `bson:"is_group" json:"is_group"`
	GroupName          string    `bson:"group_name,omitempty" json:"group_name,omitempty"`
	GroupAdmin         string    `bson:"group_admin,omitempty" json:"group_admin,omitempty"`
	DMKey              string    `bson:"dm_key,omitempty" json:"-"`
	IsEphemeral        bool      `bson:"is_ephemeral" json:"is_ephemeral"`
	LastMessageTime    time.Time `bson:"last_message_time" json:"last_message_time"`
	LastMessagePreview string    `bson:"last_message_preview" json:"last_message_preview"`
	CreatedAt          time.Time `bson:"created_at" json:"created_at"`
}

// ConversationMember links a user to a conversation. The (conversation, user)
// pair is unique; LastReadTime drives unread counts.
type ConversationMember struct {
	ID             string    `bson:"_id" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	LastReadTime   time.Time `bson:"last_read_time" json:"last_read_time"`
	JoinedAt       time.Time `bson:"joined_at" json:"joined_at"`
}

// DMKey builds the order-independent pair key for a direct conversation.
func DMKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
