// Package service holds the business logic between the HTTP/websocket
// handlers and the repositories.
package service

import (
	"context"
	"fmt"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
)

// SocialService manages the follow graph. Following is stored on both sides:
// the follower's following list and the followee's followers list.
type SocialService struct {
	users repository.UserRepository
}

func NewSocialService(users repository.UserRepository) *SocialService {
	return &SocialService{users: users}
}

// Follow records follower -> followee on both documents. The two writes are
// separate updates; if the second fails the first is left in place and the
// error is returned. Repeated follows append repeated entries.
func (s *SocialService) Follow(ctx context.Context, follower, followee string) error {
	if follower == followee {
		return models.NewValidationError("You cannot follow yourself")
	}
	if err := s.users.PushFollower(ctx, followee, follower); err != nil {
		return err
	}
	if err := s.users.PushFollowing(ctx, follower, followee); err != nil {
		return fmt.Errorf("follower side update after followee side succeeded: %w", err)
	}
	return nil
}

// Unfollow removes follower -> followee from both documents, followee side
// first, without rollback on partial failure.
func (s *SocialService) Unfollow(ctx context.Context, follower, followee string) error {
	if err := s.users.PullFollower(ctx, followee, follower); err != nil {
		return err
	}
	if err := s.users.PullFollowing(ctx, follower, followee); err != nil {
		return fmt.Errorf("follower side update after followee side succeeded: %w", err)
	}
	return nil
}

// IsFollowing reports whether follower currently has followee in their
// following list.
func (s *SocialService) IsFollowing(ctx context.Context, follower, followee string) (bool, error) {
	following, _, err := s.users.GetSocialLists(ctx, follower)
	if err != nil {
		return false, err
	}
	for _, name := range following {
		if name == followee {
			return true, nil
		}
	}
	return false, nil
}

// ProjectSocialLists resolves the username's follow lists into entries that
// pair each name with its current avatar. Names whose account no longer
// exists are skipped so the two slices always line up with real users.
func (s *SocialService) ProjectSocialLists(ctx context.Context, username string) (*models.SocialProjection, error) {
	following, followers, err := s.users.GetSocialLists(ctx, username)
	if err != nil {
		return nil, err
	}

	proj := &models.SocialProjection{
		Username:  username,
		Following: s.resolveEntries(ctx, following),
		Followers: s.resolveEntries(ctx, followers),
	}
	proj.FollowingCount = len(proj.Following)
	proj.FollowerCount = len(proj.Followers)
	return proj, nil
}

func (s *SocialService) resolveEntries(ctx context.Context, names []string) []models.SocialEntry {
	entries := make([]models.SocialEntry, 0, len(names))
	for _, name := range names {
		avatar, err := s.users.GetAvatar(ctx, name)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "failed to resolve avatar", "username", name, "error", err)
			continue
		}
		if avatar == nil {
			// Account was deleted after the follow edge was written.
			continue
		}
		entries = append(entries, models.SocialEntry{Username: name, Avatar: *avatar})
	}
	return entries
}
