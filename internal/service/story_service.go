package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StoryService covers the interactive parts of a story: its comment thread
// and its ratings. Mutations return the fresh embedded list so callers can
// fan the whole thread out to subscribers.
type StoryService struct {
	stories repository.StoryRepository
}

func NewStoryService(stories repository.StoryRepository) *StoryService {
	return &StoryService{stories: stories}
}

// AddComment appends the comment and returns the story's full comment list
// after the write.
func (s *StoryService) AddComment(ctx context.Context, storyID primitive.ObjectID, username, text string) ([]models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.NewValidationError("Comment text is required")
	}
	if err := s.stories.PushComment(ctx, storyID, models.Comment{Username: username, Text: text}); err != nil {
		return nil, err
	}
	return s.stories.GetComments(ctx, storyID)
}

// RemoveComment deletes every comment on the story matching both username
// and text, then returns the remaining list.
func (s *StoryService) RemoveComment(ctx context.Context, storyID primitive.ObjectID, username, text string) ([]models.Comment, error) {
	if err := s.stories.PullComment(ctx, storyID, models.Comment{Username: username, Text: text}); err != nil {
		return nil, err
	}
	return s.stories.GetComments(ctx, storyID)
}

// ListComments returns the story's comment thread.
func (s *StoryService) ListComments(ctx context.Context, storyID primitive.ObjectID) ([]models.Comment, error) {
	return s.stories.GetComments(ctx, storyID)
}

// AddRating appends a rating and returns the story's ratings afterwards.
// The score arrives untyped from the wire; numeric strings are accepted.
func (s *StoryService) AddRating(ctx context.Context, storyID primitive.ObjectID, username string, score any) ([]models.Rating, error) {
	value, err := coerceScore(score)
	if err != nil {
		return nil, err
	}
	if err := s.stories.PushRating(ctx, storyID, models.Rating{Username: username, Score: value}); err != nil {
		return nil, err
	}
	return s.stories.GetRatings(ctx, storyID)
}

// ListRatings returns the story's ratings.
func (s *StoryService) ListRatings(ctx context.Context, storyID primitive.ObjectID) ([]models.Rating, error) {
	return s.stories.GetRatings(ctx, storyID)
}

func coerceScore(score any) (float64, error) {
	switch v := score.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, models.NewValidationError("Rating must be a number")
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, models.NewValidationError("Rating must be a number")
		}
		return f, nil
	default:
		return 0, models.NewValidationError("Rating must be a number")
	}
}
