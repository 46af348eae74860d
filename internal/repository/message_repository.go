package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/driftchat/chat-service/internal/models"
)

type MessageRepository interface {
	Insert(ctx context.Context, m *models.Message) error
	Get(ctx context.Context, id string) (*models.Message, error)
	// ListPage returns up to limit messages of a conversation, newest first.
	// A zero beforeAt means "from the newest"; otherwise only messages
	// strictly older than (beforeAt, beforeID) are returned, which keeps
	// pages stable while new messages arrive.
	ListPage(ctx context.Context, conversationID string, beforeAt time.Time, beforeID string, limit int64) ([]models.Message, error)
	CountUnread(ctx context.Context, conversationID string, after time.Time, excludeSender string) (int64, error)
	SetDeleted(ctx context.Context, id string) error
	ReplaceReactions(ctx context.Context, id string, reactions []models.Reaction) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type messageRepo struct {
	coll *mongo.Collection
}

func NewMessageRepository(coll *mongo.Collection) MessageRepository {
	_, _ = coll.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("conversation_created_idx")},
		{Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("expires_idx")},
	})
	return &messageRepo{coll: coll}
}

func (r *messageRepo) Insert(ctx context.Context, m *models.Message) error {
	_, err := r.coll.InsertOne(ctx, m)
	return err
}

func (r *messageRepo) Get(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, mapFindErr(err)
	}
	return &m, nil
}

func (r *messageRepo) ListPage(ctx context.Context, conversationID string, beforeAt time.Time, beforeID string, limit int64) ([]models.Message, error) {
	filter := bson.M{"conversation_id": conversationID}
	if !beforeAt.IsZero() {
		// Strict (created_at, _id) ordering; the id breaks ties between
		// messages created in the same millisecond.
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": beforeAt}},
			bson.M{"created_at": beforeAt, "_id": bson.M{"$lt": beforeID}},
		}
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) CountUnread(ctx context.Context, conversationID string, after time.Time, excludeSender string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{
		"conversation_id": conversationID,
		"created_at":      bson.M{"$gt": after},
		"sender_id":       bson.M{"$ne": excludeSender},
	})
}

func (r *messageRepo) SetDeleted(ctx context.Context, id string) error {
	// Content stays in place; only the flag flips.
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_deleted": true}})
	return err
}

func (r *messageRepo) ReplaceReactions(ctx context.Context, id string, reactions []models.Reaction) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"reactions": reactions}})
	return err
}

func (r *messageRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
