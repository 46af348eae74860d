package models

import "time"

// User is a local profile synced from the identity provider on sign-in.
// Rows are never hard-deleted.
type User struct {
	ID        string    `bson:"_id" json:"id"`
	SubjectID string    `bson:"subject_id" json:"-"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	AvatarURL string    `bson:"avatar_url" json:"avatar_url"`
	IsOnline  bool      `bson:"is_online" json:"is_online"`
	LastSeen  time.Time `bson:"last_seen" json:"last_seen"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
