package repository

import (
	"context"

	"inkwell/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// TaxonomyRepository stores the category and language lookup lists used when
// composing a story.
type TaxonomyRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	ListLanguages(ctx context.Context) ([]models.Language, error)
	CreateLanguage(ctx context.Context, name string) (*models.Language, error)
}

type taxonomyRepository struct {
	categories *mongo.Collection
	languages  *mongo.Collection
}

func NewTaxonomyRepository(db *mongo.Database) TaxonomyRepository {
	return &taxonomyRepository{
		categories: db.Collection(CategoriesCollection),
		languages:  db.Collection(LanguagesCollection),
	}
}

func (r *taxonomyRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := r.listNames(ctx, r.categories, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Category{}
	}
	return out, nil
}

func (r *taxonomyRepository) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	id, err := r.insertName(ctx, r.categories, name)
	if err != nil {
		return nil, err
	}
	return &models.Category{ID: id, Name: name}, nil
}

func (r *taxonomyRepository) ListLanguages(ctx context.Context) ([]models.Language, error) {
	var out []models.Language
	if err := r.listNames(ctx, r.languages, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Language{}
	}
	return out, nil
}

func (r *taxonomyRepository) CreateLanguage(ctx context.Context, name string) (*models.Language, error) {
	id, err := r.insertName(ctx, r.languages, name)
	if err != nil {
		return nil, err
	}
	return &models.Language{ID: id, Name: name}, nil
}

func (r *taxonomyRepository) listNames(ctx context.Context, coll *mongo.Collection, out any) error {
	cur, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return models.NewInternalError(err)
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, out); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *taxonomyRepository) insertName(ctx context.Context, coll *mongo.Collection, name string) (primitive.ObjectID, error) {
	res, err := coll.InsertOne(ctx, bson.M{"name": name})
	if err != nil {
		if isDuplicateKeyError(err) {
			return primitive.NilObjectID, models.NewConflictError("Already exists")
		}
		return primitive.NilObjectID, models.NewInternalError(err)
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}
