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

// UserRepository defines persistence operations for users.
//
// Lookup methods return (nil, nil) when no document matches, mirroring the
// store's find-one semantics; callers decide whether absence is an error.
type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetAvatar(ctx context.Context, username string) (*models.Image, error)
	GetSocialLists(ctx context.Context, username string) (following, followers []string, err error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, username, bio, email string) (*models.User, error)
	SetAvatar(ctx context.Context, username string, img models.Image) error
	SetCover(ctx context.Context, username string, img models.Image) error
	SetPasswordByEmail(ctx context.Context, email, passwordHash string) error
	PushFollower(ctx context.Context, username, follower string) error
	PullFollower(ctx context.Context, username, follower string) error
	PushFollowing(ctx context.Context, username, followee string) error
	PullFollowing(ctx context.Context, username, followee string) error
}

type userRepository struct {
	coll *mongo.Collection
}

// NewUserRepository returns a UserRepository backed by the users collection.
func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{coll: db.Collection(UsersCollection)}
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetAvatar(ctx context.Context, username string) (*models.Image, error) {
	var doc struct {
		Avatar models.Image `bson:"avatar"`
	}
	err := r.coll.FindOne(ctx, bson.M{"username": username},
		options.FindOne().SetProjection(bson.M{"avatar": 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &doc.Avatar, nil
}

func (r *userRepository) GetSocialLists(ctx context.Context, username string) ([]string, []string, error) {
	var doc struct {
		Following []string `bson:"following"`
		Followers []string `bson:"followers"`
	}
	err := r.coll.FindOne(ctx, bson.M{"username": username},
		options.FindOne().SetProjection(bson.M{"following": 1, "followers": 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, models.NewNotFoundError("User", username)
	}
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	return doc.Following, doc.Followers, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Following == nil {
		user.Following = []string{}
	}
	if user.Followers == nil {
		user.Followers = []string{}
	}

	res, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		if isDuplicateKeyError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, username, bio, email string) (*models.User, error) {
	update := bson.M{"$set": bson.M{
		"bio":        bio,
		"email":      email,
		"updated_at": time.Now().UTC(),
	}}

	var user models.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"username": username}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFoundError("User", username)
	}
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, models.NewConflictError("Email already registered")
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) SetAvatar(ctx context.Context, username string, img models.Image) error {
	return r.setField(ctx, username, bson.M{"avatar": img})
}

func (r *userRepository) SetCover(ctx context.Context, username string, img models.Image) error {
	return r.setField(ctx, username, bson.M{"cover": img})
}

func (r *userRepository) setField(ctx context.Context, username string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"username": username}, bson.M{"$set": fields})
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("User", username)
	}
	return nil
}

func (r *userRepository) SetPasswordByEmail(ctx context.Context, email, passwordHash string) error {
	update := bson.M{"$set": bson.M{
		"password":   passwordHash,
		"updated_at": time.Now().UTC(),
	}}
	res := r.coll.FindOneAndUpdate(ctx, bson.M{"email": email}, update)
	if errors.Is(res.Err(), mongo.ErrNoDocuments) {
		return models.NewNotFoundError("User", email)
	}
	if res.Err() != nil {
		return models.NewInternalError(res.Err())
	}
	return nil
}

// The four array mutations below are deliberately plain $push/$pull with no
// membership check: Follow twice and the follower appears twice. Each call is
// atomic on its single document only.

func (r *userRepository) PushFollower(ctx context.Context, username, follower string) error {
	return r.arrayOp(ctx, username, "$push", "followers", follower)
}

func (r *userRepository) PullFollower(ctx context.Context, username, follower string) error {
	return r.arrayOp(ctx, username, "$pull", "followers", follower)
}

func (r *userRepository) PushFollowing(ctx context.Context, username, followee string) error {
	return r.arrayOp(ctx, username, "$push", "following", followee)
}

func (r *userRepository) PullFollowing(ctx context.Context, username, followee string) error {
	return r.arrayOp(ctx, username, "$pull", "following", followee)
}

func (r *userRepository) arrayOp(ctx context.Context, username, op, field, value string) error {
	res := r.coll.FindOneAndUpdate(ctx, bson.M{"username": username},
		bson.M{op: bson.M{field: value}})
	if errors.Is(res.Err(), mongo.ErrNoDocuments) {
		return models.NewNotFoundError("User", username)
	}
	if res.Err() != nil {
		return models.NewInternalError(res.Err())
	}
	return nil
}
