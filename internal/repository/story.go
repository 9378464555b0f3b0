package repository

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StoryRepository defines persistence operations for stories, including the
// embedded comment and rating sequences.
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Story, error)
	TitleExists(ctx context.Context, title string) (bool, error)
	Update(ctx context.Context, id primitive.ObjectID, upd models.StoryUpdate) error
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Story, error)
	ListPublished(ctx context.Context) ([]models.Story, error)
	ListByAuthor(ctx context.Context, author string) ([]models.Story, error)
	LatestPublishedByAuthor(ctx context.Context, author string) (*models.Story, error)
	PushComment(ctx context.Context, id primitive.ObjectID, c models.Comment) error
	PullComment(ctx context.Context, id primitive.ObjectID, c models.Comment) error
	GetComments(ctx context.Context, id primitive.ObjectID) ([]models.Comment, error)
	PushRating(ctx context.Context, id primitive.ObjectID, r models.Rating) error
	GetRatings(ctx context.Context, id primitive.ObjectID) ([]models.Rating, error)
}

type storyRepository struct {
	coll *mongo.Collection
}

// NewStoryRepository returns a StoryRepository backed by the stories collection.
func NewStoryRepository(db *mongo.Database) StoryRepository {
	return &storyRepository{coll: db.Collection(StoriesCollection)}
}

func (r *storyRepository) Create(ctx context.Context, story *models.Story) error {
	now := time.Now().UTC()
	story.CreatedAt = now
	story.UpdatedAt = now
	if story.Comments == nil {
		story.Comments = []models.Comment{}
	}
	if story.Ratings == nil {
		story.Ratings = []models.Rating{}
	}

	res, err := r.coll.InsertOne(ctx, story)
	if err != nil {
		if isDuplicateKeyError(err) {
			return models.NewConflictError("A story with this title already exists")
		}
		return models.NewInternalError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		story.ID = id
	}
	return nil
}

func (r *storyRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Story, error) {
	var story models.Story
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&story)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFoundError("Story", id.Hex())
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &story, nil
}

func (r *storyRepository) TitleExists(ctx context.Context, title string) (bool, error) {
	err := r.coll.FindOne(ctx, bson.M{"title": title},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return true, nil
}

func (r *storyRepository) Update(ctx context.Context, id primitive.ObjectID, upd models.StoryUpdate) error {
	set := bson.M{
		"title":       upd.Title,
		"author":      upd.Author,
		"description": upd.Description,
		"body":        upd.Body,
		"characters":  upd.Characters,
		"language":    upd.Language,
		"category":    upd.Category,
		"published":   upd.Published,
		"updated_at":  time.Now().UTC(),
	}
	if upd.Cover != nil {
		set["cover"] = *upd.Cover
	}

	res := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if errors.Is(res.Err(), mongo.ErrNoDocuments) {
		return models.NewNotFoundError("Story", id.Hex())
	}
	if res.Err() != nil {
		if isDuplicateKeyError(res.Err()) {
			return models.NewConflictError("A story with this title already exists")
		}
		return models.NewInternalError(res.Err())
	}
	return nil
}

// Delete removes the story and returns the deleted document so the caller can
// release its cover image at the media gateway.
func (r *storyRepository) Delete(ctx context.Context, id primitive.ObjectID) (*models.Story, error) {
	var story models.Story
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&story)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFoundError("Story", id.Hex())
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &story, nil
}

// ListPublished returns the browse listing: published stories without body,
// characters or the embedded comment/rating sequences.
func (r *storyRepository) ListPublished(ctx context.Context) ([]models.Story, error) {
	proj := bson.M{
		"body":       0,
		"characters": 0,
		"comments":   0,
		"ratings":    0,
	}
	return r.list(ctx, bson.M{"published": true}, options.Find().SetProjection(proj))
}

// ListByAuthor returns the author's stories (drafts included) in profile-card
// shape: cover, title, author, description and the published flag.
func (r *storyRepository) ListByAuthor(ctx context.Context, author string) ([]models.Story, error) {
	proj := bson.M{
		"cover":       1,
		"title":       1,
		"author":      1,
		"description": 1,
		"published":   1,
	}
	return r.list(ctx, bson.M{"author": author}, options.Find().SetProjection(proj))
}

func (r *storyRepository) list(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Story, error) {
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer cur.Close(ctx)

	stories := []models.Story{}
	if err := cur.All(ctx, &stories); err != nil {
		return nil, models.NewInternalError(err)
	}
	return stories, nil
}

func (r *storyRepository) LatestPublishedByAuthor(ctx context.Context, author string) (*models.Story, error) {
	var story models.Story
	err := r.coll.FindOne(ctx,
		bson.M{"author": author, "published": true},
		options.FindOne().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetProjection(bson.M{"cover": 1, "title": 1, "author": 1, "description": 1, "created_at": 1}),
	).Decode(&story)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &story, nil
}

func (r *storyRepository) PushComment(ctx context.Context, id primitive.ObjectID, c models.Comment) error {
	return r.arrayOp(ctx, id, "$push", "comments", c)
}

// PullComment removes every embedded comment equal to c, not just the first.
func (r *storyRepository) PullComment(ctx context.Context, id primitive.ObjectID, c models.Comment) error {
	return r.arrayOp(ctx, id, "$pull", "comments", c)
}

func (r *storyRepository) PushRating(ctx context.Context, id primitive.ObjectID, rating models.Rating) error {
	return r.arrayOp(ctx, id, "$push", "ratings", rating)
}

func (r *storyRepository) arrayOp(ctx context.Context, id primitive.ObjectID, op, field string, value any) error {
	res := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{op: bson.M{field: value}})
	if errors.Is(res.Err(), mongo.ErrNoDocuments) {
		return models.NewNotFoundError("Story", id.Hex())
	}
	if res.Err() != nil {
		return models.NewInternalError(res.Err())
	}
	return nil
}

func (r *storyRepository) GetComments(ctx context.Context, id primitive.ObjectID) ([]models.Comment, error) {
	var doc struct {
		Comments []models.Comment `bson:"comments"`
	}
	err := r.coll.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"comments": 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFoundError("Story", id.Hex())
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if doc.Comments == nil {
		doc.Comments = []models.Comment{}
	}
	return doc.Comments, nil
}

func (r *storyRepository) GetRatings(ctx context.Context, id primitive.ObjectID) ([]models.Rating, error) {
	var doc struct {
		Ratings []models.Rating `bson:"ratings"`
	}
	err := r.coll.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"ratings": 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFoundError("Story", id.Hex())
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if doc.Ratings == nil {
		doc.Ratings = []models.Rating{}
	}
	return doc.Ratings, nil
}
