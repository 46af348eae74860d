package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/driftchat/chat-service/internal/models"
)

// IsDup reports whether an insert failed on a unique index.
func IsDup(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

type ConversationRepository interface {
	Insert(ctx context.Context, c *models.Conversation) error
	Get(ctx context.Context, id string) (*models.Conversation, error)
	GetByDMKey(ctx context.Context, key string) (*models.Conversation, error)
	SetEphemeral(ctx context.Context, id string, ephemeral bool) error
	UpdateLastMessage(ctx context.Context, id, preview string, at time.Time) error
}

type conversationRepo struct {
	coll *mongo.Collection
}

func NewConversationRepository(coll *mongo.Collection) ConversationRepository {
	// The sparse unique index on dm_key is what closes the DM dedup race:
	// concurrent creators collide on insert and one side re-reads.
	_, _ = coll.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "dm_key", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true).SetName("dm_key_idx")},
		{Keys: bson.D{{Key: "last_message_time", Value: -1}}, Options: options.Index().SetName("last_message_idx")},
	})
	return &conversationRepo{coll: coll}
}

func (r *conversationRepo) Insert(ctx context.Context, c *models.Conversation) error {
	_, err := r.coll.InsertOne(ctx, c)
	return err
}

func (r *conversationRepo) Get(ctx context.Context, id string) (*models.Conversation, error) {
	var c models.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, mapFindErr(err)
	}
	return &c, nil
}

func (r *conversationRepo) GetByDMKey(ctx context.Context, key string) (*models.Conversation, error) {
	var c models.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"dm_key": key}).Decode(&c); err != nil {
		return nil, mapFindErr(err)
	}
	return &c, nil
}

func (r *conversationRepo) SetEphemeral(ctx context.Context, id string, ephemeral bool) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_ephemeral": ephemeral}})
	return err
}

func (r *conversationRepo) UpdateLastMessage(ctx context.Context, id, preview string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"last_message_time":    at,
		"last_message_preview": preview,
	}})
	return err
}
