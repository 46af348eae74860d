package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/driftchat/chat-service/internal/models"
)

type MemberRepository interface {
	Insert(ctx context.Context, m *models.ConversationMember) error
	// Ensure inserts the membership row if the (conversation, user) pair
	// is not already present. Retries of a partially applied conversation
	// creation converge through here.
	Ensure(ctx context.Context, m *models.ConversationMember) error
	Get(ctx context.Context, conversationID, userID string) (*models.ConversationMember, error)
	ListByUser(ctx context.Context, userID string) ([]models.ConversationMember, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.ConversationMember, error)
	SetLastRead(ctx context.Context, conversationID, userID string, at time.Time) error
}

type memberRepo struct {
	coll *mongo.Collection
}

func NewMemberRepository(coll *mongo.Collection) MemberRepository {
	_, _ = coll.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("conversation_user_idx")},
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("user_idx")},
	})
	return &memberRepo{coll: coll}
}

func (r *memberRepo) Insert(ctx context.Context, m *models.ConversationMember) error {
	_, err := r.coll.InsertOne(ctx, m)
	return err
}

func (r *memberRepo) Ensure(ctx context.Context, m *models.ConversationMember) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"conversation_id": m.ConversationID, "user_id": m.UserID},
		bson.M{"$setOnInsert": bson.M{
			"_id":            m.ID,
			"last_read_time": m.LastReadTime,
			"joined_at":      m.JoinedAt,
		}},
		options.Update().SetUpsert(true))
	return err
}

func (r *memberRepo) Get(ctx context.Context, conversationID, userID string) (*models.ConversationMember, error) {
	var m models.ConversationMember
	err := r.coll.FindOne(ctx, bson.M{"conversation_id": conversationID, "user_id": userID}).Decode(&m)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &m, nil
}

func (r *memberRepo) ListByUser(ctx context.Context, userID string) ([]models.ConversationMember, error) {
	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ConversationMember
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *memberRepo) ListByConversation(ctx context.Context, conversationID string) ([]models.ConversationMember, error) {
	cur, err := r.coll.Find(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ConversationMember
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *memberRepo) SetLastRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	// Matching zero documents is fine: no membership means no-op.
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"conversation_id": conversationID, "user_id": userID},
		bson.M{"$set": bson.M{"last_read_time": at}})
	return err
}
