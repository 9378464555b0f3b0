package server

import (
	"strings"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.taxonomyRepo.ListCategories(c.Context())
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}
	return c.JSON(fiber.Map{
		"categories": categories,
	})
}

// CreateCategory handles POST /api/categories
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	name, ok := parseName(c)
	if !ok {
		return nil
	}

	category, err := s.taxonomyRepo.CreateCategory(c.Context(), name)
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"category": category,
	})
}

// GetLanguages handles GET /api/languages
func (s *Server) GetLanguages(c *fiber.Ctx) error {
	languages, err := s.taxonomyRepo.ListLanguages(c.Context())
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}
	return c.JSON(fiber.Map{
		"languages": languages,
	})
}

// CreateLanguage handles POST /api/languages
func (s *Server) CreateLanguage(c *fiber.Ctx) error {
	name, ok := parseName(c)
	if !ok {
		return nil
	}

	language, err := s.taxonomyRepo.CreateLanguage(c.Context(), name)
	if err != nil {
		return models.RespondWithError(c, statusFor(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"language": language,
	})
}

func parseName(c *fiber.Ctx) (string, bool) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return "", false
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Name is required"))
		return "", false
	}
	return name, true
}
