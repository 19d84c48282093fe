package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainPost "github.com/TMEades/solocreatorhub-ai-sub000/domains/post"
	"github.com/TMEades/solocreatorhub-ai-sub000/infrastructure/mongodb"
)

const postsCollection = "posts"

type ContentMongoRepository struct {
	posts *mongo.Collection
}

func NewContentMongoRepository(client *mongodb.Client) *ContentMongoRepository {
	return &ContentMongoRepository{posts: client.Collection(postsCollection)}
}

// EnsureIndexes creates the query indexes the list endpoint relies on.
func (r *ContentMongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	return err
}

func (r *ContentMongoRepository) Create(ctx context.Context, p domainPost.Post) error {
	_, err := r.posts.InsertOne(ctx, p)
	return err
}

func (r *ContentMongoRepository) GetByID(ctx context.Context, ownerID, id string) (domainPost.Post, error) {
	var p domainPost.Post
	err := r.posts.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return domainPost.Post{}, domainPost.ErrPostNotFound
		}
		return domainPost.Post{}, err
	}
	return p, nil
}

func (r *ContentMongoRepository) Update(ctx context.Context, p domainPost.Post) error {
	res, err := r.posts.ReplaceOne(ctx, bson.M{"_id": p.ID, "owner_id": p.OwnerID}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainPost.ErrPostNotFound
	}
	return nil
}

// PatchScheduleRef is the phase-3 write of the two-store saga: it stamps the
// committed schedule id (or clears it) onto the content record.
func (r *ContentMongoRepository) PatchScheduleRef(ctx context.Context, id, scheduleRef string, status domainPost.PostStatus) error {
	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC(),
		},
	}
	if scheduleRef == "" {
		update["$unset"] = bson.M{"schedule_ref": ""}
	} else {
		update["$set"].(bson.M)["schedule_ref"] = scheduleRef
	}

	res, err := r.posts.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainPost.ErrPostNotFound
	}
	return nil
}

func (r *ContentMongoRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainPost.ErrPostNotFound
	}
	return nil
}

func (r *ContentMongoRepository) List(ctx context.Context, ownerID string, filter domainPost.ListPostsRequest) ([]domainPost.Post, int64, error) {
	query := bson.M{"owner_id": ownerID}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Platform != "" {
		query["platforms"] = filter.Platform
	}

	total, err := r.posts.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.posts.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var posts []domainPost.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}
