package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a single embedded comment on a story. Removal matches by full
// value equality, so duplicate comments with identical content cannot be
// told apart.
type Comment struct {
	Username string `bson:"username" json:"username"`
	Text     string `bson:"text" json:"text"`
}

// Rating is a single embedded rating on a story. Ratings are append-only;
// nothing prevents the same user from rating twice.
type Rating struct {
	Username string  `bson:"username" json:"username"`
	Score    float64 `bson:"score" json:"score"`
}

// Story represents a story document. Author is a denormalized username copy.
type Story struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Author      string             `bson:"author" json:"author"`
	Cover       Image              `bson:"cover" json:"cover"`
	Description string             `bson:"description" json:"description"`
	Body        string             `bson:"body" json:"body,omitempty"`
	Characters  string             `bson:"characters" json:"characters,omitempty"`
	Language    string             `bson:"language" json:"language"`
	Category    string             `bson:"category" json:"category"`
	Published   bool               `bson:"published" json:"published"`
	Comments    []Comment          `bson:"comments" json:"comments,omitempty"`
	Ratings     []Rating           `bson:"ratings" json:"ratings,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// StoryUpdate carries the mutable fields of a story edit. Cover is only
// replaced when non-nil; the handler uploads the new image before the old
// one is discarded so the gateway resource is never orphaned.
type StoryUpdate struct {
	Title       string
	Author      string
	Description string
	Body        string
	Characters  string
	Language    string
	Category    string
	Published   bool
	Cover       *Image
}

// Category is a flat lookup entity referenced by free-text match on Story.
type Category struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name" json:"name"`
}

// Language is a flat lookup entity referenced by free-text match on Story.
type Language struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name" json:"name"`
}
