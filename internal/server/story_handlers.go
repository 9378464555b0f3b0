package server

import (
	"encoding/json"

	"inkwell/internal/media"
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateStory handles POST /api/stories. A story needs its cover on the
// media host before the document is written; on a store failure the fresh
// upload is destroyed again.
func (s *Server) CreateStory(c *fiber.Ctx) error {
	title := c.FormValue("title")
	if title == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Title is required"))
	}

	exists, err := s.storyRepo.TitleExists(c.Context(), title)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if exists {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewConflictError("A story with this title already exists"))
	}

	var cover models.Image
	if file, ferr := c.FormFile("cover"); ferr == nil {
		src, oerr := file.Open()
		if oerr != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unreadable cover image"))
		}
		defer src.Close()

		cover, err = s.media.Upload(c.Context(), src, media.KindStoryCover)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadGateway,
				models.NewInternalError(err))
		}
	}

	story := &models.Story{
		Title:       title,
		Author:      getUsername(c),
		Cover:       cover,
		Description: c.FormValue("description"),
		Body:        c.FormValue("body"),
		Characters:  c.FormValue("characters"),
		Language:    c.FormValue("language"),
		Category:    c.FormValue("category"),
		Published:   c.FormValue("published") == "true",
	}

	if err := s.storyRepo.Create(c.Context(), story); err != nil {
		// Don't leave the fresh cover orphaned on the media host.
		if !cover.IsZero() {
			if derr := s.media.Destroy(c.Context(), cover.PublicID); derr != nil {
				middleware.Logger.WarnContext(c.UserContext(), "failed to delete orphaned cover",
					"public_id", cover.PublicID, "error", derr)
			}
		}
		return models.RespondWithError(c, statusFor(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"story": story,
	})
}

// GetStories handles GET /api/stories: published stories in listing shape.
func (s *Server) GetStories(c *fiber.Ctx) error {
	stories, err := s.storyRepo.ListPublished(c.Context())
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}
	return c.JSON(fiber.Map{
		"stories": stories,
	})
}

// GetStory handles GET /api/stories/:id
func (s *Server) GetStory(c *fiber.Ctx) error {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return nil
	}

	story, err := s.storyRepo.GetByID(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}

	return c.JSON(fiber.Map{
		"story": story,
	})
}

// UpdateStory handles PUT /api/stories/:id. The cover is replaced only when
// the request carries a new file: upload first, persist, then delete the
// previous image.
func (s *Server) UpdateStory(c *fiber.Ctx) error {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return nil
	}

	existing, err := s.storyRepo.GetByID(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}

	upd := models.StoryUpdate{
		Title:       c.FormValue("title", existing.Title),
		Author:      c.FormValue("author", existing.Author),
		Description: c.FormValue("description", existing.Description),
		Body:        c.FormValue("body", existing.Body),
		Characters:  c.FormValue("characters", existing.Characters),
		Language:    c.FormValue("language", existing.Language),
		Category:    c.FormValue("category", existing.Category),
		Published:   c.FormValue("published", boolString(existing.Published)) == "true",
	}

	var oldCover models.Image
	if file, ferr := c.FormFile("cover"); ferr == nil {
		src, oerr := file.Open()
		if oerr != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unreadable cover image"))
		}
		defer src.Close()

		newCover, uerr := s.media.Upload(c.Context(), src, media.KindStoryCover)
		if uerr != nil {
			return models.RespondWithError(c, fiber.StatusBadGateway,
				models.NewInternalError(uerr))
		}
		upd.Cover = &newCover
		oldCover = existing.Cover
	}

	if err := s.storyRepo.Update(c.Context(), id, upd); err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}

	if upd.Cover != nil && !oldCover.IsZero() {
		if derr := s.media.Destroy(c.Context(), oldCover.PublicID); derr != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to delete replaced cover",
				"public_id", oldCover.PublicID, "error", derr)
		}
	}

	story, err := s.storyRepo.GetByID(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}

	return c.JSON(fiber.Map{
		"story": story,
	})
}

// DeleteStory handles DELETE /api/stories/:id: one document delete, one
// cover Destroy. A media failure is logged, the delete stands.
func (s *Server) DeleteStory(c *fiber.Ctx) error {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return nil
	}

	story, err := s.storyRepo.Delete(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}

	if !story.Cover.IsZero() {
		if derr := s.media.Destroy(c.Context(), story.Cover.PublicID); derr != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to delete story cover",
				"public_id", story.Cover.PublicID, "error", derr)
		}
	}

	return c.JSON(fiber.Map{
		"message": "Story deleted",
	})
}

// GetStoryComments handles GET /api/stories/:id/comments
func (s *Server) GetStoryComments(c *fiber.Ctx) error {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return nil
	}

	comments, err := s.storyService.ListComments(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}

	return c.JSON(fiber.Map{
		"comments": comments,
	})
}

// SubmitRating handles POST /api/stories/:id/ratings. The score field is
// accepted as a JSON number or a numeric string.
func (s *Server) SubmitRating(c *fiber.Ctx) error {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return nil
	}

	var req struct {
		Score json.RawMessage `json:"score"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	var score any
	if err := json.Unmarshal(req.Score, &score); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Rating must be a number"))
	}

	ratings, err := s.storyService.AddRating(c.Context(), id, getUsername(c), score)
	if err != nil {
		if models.IsValidation(err) {
			return models.RespondWithError(c, fiber.StatusBadRequest, err)
		}
		return models.RespondWithError(c, statusFor(err), err)
	}

	return c.JSON(fiber.Map{
		"ratings": ratings,
	})
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
