// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Image references a picture hosted by the external media gateway.
// PublicID is the gateway-side identifier needed to delete the resource later.
type Image struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"public_id" json:"public_id,omitempty"`
}

// IsZero reports whether the image reference is empty.
func (i Image) IsZero() bool {
	return i.URL == "" && i.PublicID == ""
}

// User represents a registered account.
//
// Following and Followers hold usernames, not foreign keys. The two arrays on
// opposite sides of a follow edge are updated by separate single-document
// operations, so a crash between them can leave a one-sided edge.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username  string             `bson:"username" json:"username"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Bio       string             `bson:"bio" json:"bio"`
	IsAdmin   bool               `bson:"is_admin" json:"is_admin"`
	Avatar    Image              `bson:"avatar" json:"avatar"`
	Cover     Image              `bson:"cover" json:"cover"`
	Following []string           `bson:"following" json:"following"`
	Followers []string           `bson:"followers" json:"followers"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// SocialEntry pairs a username with its resolved avatar. Keeping the pair
// together avoids index misalignment when a listed user no longer exists.
type SocialEntry struct {
	Username string `json:"username"`
	Avatar   Image  `json:"avatar"`
}

// SocialProjection is the denormalized read view of a user's follow graph.
type SocialProjection struct {
	Username       string        `json:"username"`
	Following      []SocialEntry `json:"following"`
	Followers      []SocialEntry `json:"followers"`
	FollowingCount int           `json:"following_count"`
	FollowerCount  int           `json:"follower_count"`
}
