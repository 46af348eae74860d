package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/driftchat/chat-service/internal/models"
)

type TypingRepository interface {
	Upsert(ctx context.Context, conversationID, userID string, expiresAt time.Time) error
	Delete(ctx context.Context, conversationID, userID string) error
	ListByConversation(ctx context.Context, conversationID string) ([]models.TypingIndicator, error)
}

type typingRepo struct {
	coll *mongo.Collection
}

func NewTypingRepository(coll *mongo.Collection) TypingRepository {
	_, _ = coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("conversation_user_idx"),
	})
	return &typingRepo{coll: coll}
}

func (r *typingRepo) Upsert(ctx context.Context, conversationID, userID string, expiresAt time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"conversation_id": conversationID, "user_id": userID},
		bson.M{
			"$set":         bson.M{"expires_at": expiresAt},
			"$setOnInsert": bson.M{"_id": uuid.NewString()},
		},
		options.Update().SetUpsert(true))
	return err
}

func (r *typingRepo) Delete(ctx context.Context, conversationID, userID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"conversation_id": conversationID, "user_id": userID})
	return err
}

func (r *typingRepo) ListByConversation(ctx context.Context, conversationID string) ([]models.TypingIndicator, error) {
	cur, err := r.coll.Find(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TypingIndicator
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
