package server

import (
	"mime/multipart"

	"inkwell/internal/media"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetSession handles GET /api/session: it returns the account behind the
// presented token.
func (s *Server) GetSession(c *fiber.Ctx) error {
	username := getUsername(c)

	user, err := s.userRepo.GetByUsername(c.Context(), username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", username))
	}

	return c.JSON(fiber.Map{
		"user":     user,
		"is_admin": getIsAdmin(c),
	})
}

// GetUserProfile handles GET /api/users/:username: the public profile page
// payload with the resolved follow lists and the author's stories.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	username := c.Params("username")

	user, err := s.userRepo.GetByUsername(c.Context(), username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", username))
	}

	social, err := s.socialService.ProjectSocialLists(c.Context(), username)
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}

	stories, err := s.storyRepo.ListByAuthor(c.Context(), username)
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}

	latest, err := s.storyRepo.LatestPublishedByAuthor(c.Context(), username)
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}

	return c.JSON(fiber.Map{
		"user":         user,
		"social":       social,
		"stories":      stories,
		"latest_story": latest,
	})
}

// GetFollowStatus handles GET /api/users/:username/follow-status: whether the
// authenticated account follows :username.
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	follower := getUsername(c)
	followee := c.Params("username")

	following, err := s.socialService.IsFollowing(c.Context(), follower, followee)
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}

	return c.JSON(fiber.Map{
		"following": following,
	})
}

// UpdateMyProfile handles PUT /api/users/me. Bio and email arrive as form
// fields; avatar and cover as optional multipart files. A new image is
// uploaded before the old one is deleted so a failure never orphans the
// profile.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	username := getUsername(c)

	user, err := s.userRepo.GetByUsername(c.Context(), username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", username))
	}

	bio := c.FormValue("bio", user.Bio)
	email := c.FormValue("email", user.Email)
	if email != user.Email {
		if err := validation.ValidateEmail(email); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
	}

	updated, err := s.userRepo.UpdateProfile(c.Context(), username, bio, email)
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}

	if file, ferr := c.FormFile("avatar"); ferr == nil {
		s.replaceUserImage(c, file, media.KindAvatar, user.Avatar, func(img models.Image) error {
			updated.Avatar = img
			return s.userRepo.SetAvatar(c.Context(), username, img)
		})
	}
	if file, ferr := c.FormFile("cover"); ferr == nil {
		s.replaceUserImage(c, file, media.KindProfileCover, user.Cover, func(img models.Image) error {
			updated.Cover = img
			return s.userRepo.SetCover(c.Context(), username, img)
		})
	}

	return c.JSON(fiber.Map{
		"user": updated,
	})
}

// replaceUserImage uploads the new file, persists it, then deletes the old
// image. Gateway failures are logged and swallowed; the profile update itself
// already succeeded.
func (s *Server) replaceUserImage(c *fiber.Ctx, file *multipart.FileHeader,
	kind media.Kind, old models.Image, persist func(models.Image) error) {

	src, err := file.Open()
	if err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "failed to open uploaded image", "error", err)
		return
	}
	defer src.Close()

	img, err := s.media.Upload(c.Context(), src, kind)
	if err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "image upload failed", "error", err)
		return
	}

	if err := persist(img); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "failed to persist image", "error", err)
		return
	}

	// The shared default avatar is never deleted from the media host.
	if !old.IsZero() && old.PublicID != s.config.DefaultAvatarID {
		if err := s.media.Destroy(c.Context(), old.PublicID); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to delete replaced image",
				"public_id", old.PublicID, "error", err)
		}
	}
}
