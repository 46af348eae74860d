package repository

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/driftchat/chat-service/internal/models"
)

type UserRepository interface {
	Insert(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetBySubject(ctx context.Context, subjectID string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, name, email, avatarURL string, now time.Time) error
	SetOnline(ctx context.Context, id string, online bool, now time.Time) error
	List(ctx context.Context) ([]models.User, error)
	Search(ctx context.Context, query string) ([]models.User, error)
}

type userRepo struct {
	coll *mongo.Collection
}

func NewUserRepository(coll *mongo.Collection) UserRepository {
	_, _ = coll.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "subject_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("subject_idx")},
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetName("name_idx")},
	})
	return &userRepo{coll: coll}
}

func (r *userRepo) Insert(ctx context.Context, u *models.User) error {
	_, err := r.coll.InsertOne(ctx, u)
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mapFindErr(err)
	}
	return &u, nil
}

func (r *userRepo) GetBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	var u models.User
	if err := r.coll.FindOne(ctx, bson.M{"subject_id": subjectID}).Decode(&u); err != nil {
		return nil, mapFindErr(err)
	}
	return &u, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, id, name, email, avatarURL string, now time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":       name,
		"email":      email,
		"avatar_url": avatarURL,
		"is_online":  true,
		"last_seen":  now,
	}})
	return err
}

func (r *userRepo) SetOnline(ctx context.Context, id string, online bool, now time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"is_online": online,
		"last_seen": now,
	}})
	return err
}

func (r *userRepo) List(ctx context.Context) ([]models.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) Search(ctx context.Context, query string) ([]models.User, error) {
	cur, err := r.coll.Find(ctx, nameSearchFilter(query), options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// nameSearchFilter matches display names containing the query, case
// insensitive, with user input quoted so it is matched literally.
func nameSearchFilter(query string) bson.M {
	return bson.M{"name": bson.M{
		"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"},
	}}
}
