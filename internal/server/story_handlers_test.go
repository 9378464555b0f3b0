package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"inkwell/internal/media"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MockStoryRepository struct {
	mock.Mock
}

func (m *MockStoryRepository) Create(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}

func (m *MockStoryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Story, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

func (m *MockStoryRepository) TitleExists(ctx context.Context, title string) (bool, error) {
	args := m.Called(ctx, title)
	return args.Bool(0), args.Error(1)
}

func (m *MockStoryRepository) Update(ctx context.Context, id primitive.ObjectID, upd models.StoryUpdate) error {
	args := m.Called(ctx, id, upd)
	return args.Error(0)
}

func (m *MockStoryRepository) Delete(ctx context.Context, id primitive.ObjectID) (*models.Story, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

func (m *MockStoryRepository) ListPublished(ctx context.Context) ([]models.Story, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Story), args.Error(1)
}

func (m *MockStoryRepository) ListByAuthor(ctx context.Context, author string) ([]models.Story, error) {
	args := m.Called(ctx, author)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Story), args.Error(1)
}

func (m *MockStoryRepository) LatestPublishedByAuthor(ctx context.Context, author string) (*models.Story, error) {
	args := m.Called(ctx, author)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

func (m *MockStoryRepository) PushComment(ctx context.Context, id primitive.ObjectID, c models.Comment) error {
	args := m.Called(ctx, id, c)
	return args.Error(0)
}

func (m *MockStoryRepository) PullComment(ctx context.Context, id primitive.ObjectID, c models.Comment) error {
	args := m.Called(ctx, id, c)
	return args.Error(0)
}

func (m *MockStoryRepository) GetComments(ctx context.Context, id primitive.ObjectID) ([]models.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Comment), args.Error(1)
}

func (m *MockStoryRepository) PushRating(ctx context.Context, id primitive.ObjectID, r models.Rating) error {
	args := m.Called(ctx, id, r)
	return args.Error(0)
}

func (m *MockStoryRepository) GetRatings(ctx context.Context, id primitive.ObjectID) ([]models.Rating, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Rating), args.Error(1)
}

type MockMediaGateway struct {
	mock.Mock
}

func (m *MockMediaGateway) Upload(ctx context.Context, source any, kind media.Kind) (models.Image, error) {
	args := m.Called(ctx, source, kind)
	return args.Get(0).(models.Image), args.Error(1)
}

func (m *MockMediaGateway) Destroy(ctx context.Context, publicID string) error {
	args := m.Called(ctx, publicID)
	return args.Error(0)
}

func newStoryTestApp(s *Server) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("username", "testuser")
		c.Locals("isAdmin", false)
		return c.Next()
	})
	app.Post("/api/stories", s.CreateStory)
	app.Delete("/api/stories/:id", s.DeleteStory)
	app.Post("/api/stories/:id/ratings", s.SubmitRating)
	return app
}

func TestDeleteStoryDestroysCoverOnce(t *testing.T) {
	storyRepo := new(MockStoryRepository)
	gateway := new(MockMediaGateway)
	s := &Server{config: testConfig(), storyRepo: storyRepo, media: gateway}
	app := newStoryTestApp(s)

	id := primitive.NewObjectID()
	storyRepo.On("Delete", mock.Anything, id).Return(&models.Story{
		ID:    id,
		Title: "Gone",
		Cover: models.Image{URL: "https://img/x.webp", PublicID: "covers/x"},
	}, nil)
	gateway.On("Destroy", mock.Anything, "covers/x").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/stories/"+id.Hex(), nil)
	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	gateway.AssertNumberOfCalls(t, "Destroy", 1)
	storyRepo.AssertExpectations(t)
}

func TestDeleteStoryMissing(t *testing.T) {
	storyRepo := new(MockStoryRepository)
	gateway := new(MockMediaGateway)
	s := &Server{config: testConfig(), storyRepo: storyRepo, media: gateway}
	app := newStoryTestApp(s)

	id := primitive.NewObjectID()
	storyRepo.On("Delete", mock.Anything, id).Return(nil, models.NewNotFoundError("Story", id.Hex()))

	req := httptest.NewRequest(http.MethodDelete, "/api/stories/"+id.Hex(), nil)
	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	gateway.AssertNotCalled(t, "Destroy", mock.Anything, mock.Anything)
}

func TestDeleteStoryWithoutCover(t *testing.T) {
	storyRepo := new(MockStoryRepository)
	gateway := new(MockMediaGateway)
	s := &Server{config: testConfig(), storyRepo: storyRepo, media: gateway}
	app := newStoryTestApp(s)

	id := primitive.NewObjectID()
	storyRepo.On("Delete", mock.Anything, id).Return(&models.Story{ID: id, Title: "Plain"}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/stories/"+id.Hex(), nil)
	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	gateway.AssertNotCalled(t, "Destroy", mock.Anything, mock.Anything)
}

func TestDeleteStoryBadID(t *testing.T) {
	storyRepo := new(MockStoryRepository)
	s := &Server{config: testConfig(), storyRepo: storyRepo}
	app := newStoryTestApp(s)

	req := httptest.NewRequest(http.MethodDelete, "/api/stories/not-hex", nil)
	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	storyRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCreateStoryDuplicateTitle(t *testing.T) {
	storyRepo := new(MockStoryRepository)
	s := &Server{config: testConfig(), storyRepo: storyRepo}
	app := newStoryTestApp(s)

	storyRepo.On("TitleExists", mock.Anything, "Taken").Return(true, nil)

	form := url.Values{}
	form.Set("title", "Taken")
	req := httptest.NewRequest(http.MethodPost, "/api/stories", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	storyRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateStoryWithoutCover(t *testing.T) {
	storyRepo := new(MockStoryRepository)
	s := &Server{config: testConfig(), storyRepo: storyRepo}
	app := newStoryTestApp(s)

	storyRepo.On("TitleExists", mock.Anything, "Fresh Ink").Return(false, nil)
	storyRepo.On("Create", mock.Anything, mock.MatchedBy(func(story *models.Story) bool {
		return story.Title == "Fresh Ink" && story.Author == "testuser" && story.Published
	})).Return(nil)

	form := url.Values{}
	form.Set("title", "Fresh Ink")
	form.Set("description", "a beginning")
	form.Set("published", "true")
	req := httptest.NewRequest(http.MethodPost, "/api/stories", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	storyRepo.AssertExpectations(t)
}

func TestCreateStoryMissingTitle(t *testing.T) {
	storyRepo := new(MockStoryRepository)
	s := &Server{config: testConfig(), storyRepo: storyRepo}
	app := newStoryTestApp(s)

	req := httptest.NewRequest(http.MethodPost, "/api/stories", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	storyRepo.AssertNotCalled(t, "TitleExists", mock.Anything, mock.Anything)
}

func TestSubmitRatingStringScore(t *testing.T) {
	storyRepo := new(MockStoryRepository)
	s := &Server{
		config:       testConfig(),
		storyRepo:    storyRepo,
		storyService: service.NewStoryService(storyRepo),
	}
	app := newStoryTestApp(s)

	id := primitive.NewObjectID()
	storyRepo.On("PushRating", mock.Anything, id, models.Rating{Username: "testuser", Score: 4}).Return(nil)
	storyRepo.On("GetRatings", mock.Anything, id).Return([]models.Rating{
		{Username: "testuser", Score: 4},
	}, nil)

	body, _ := json.Marshal(map[string]string{"score": "4"})
	req := httptest.NewRequest(http.MethodPost, "/api/stories/"+id.Hex()+"/ratings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Ratings []models.Rating `json:"ratings"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Len(t, result.Ratings, 1)
	assert.Equal(t, float64(4), result.Ratings[0].Score)
	storyRepo.AssertExpectations(t)
}

func TestSubmitRatingRejectsNonNumeric(t *testing.T) {
	storyRepo := new(MockStoryRepository)
	s := &Server{
		config:       testConfig(),
		storyRepo:    storyRepo,
		storyService: service.NewStoryService(storyRepo),
	}
	app := newStoryTestApp(s)

	id := primitive.NewObjectID()
	body, _ := json.Marshal(map[string]string{"score": "gripping"})
	req := httptest.NewRequest(http.MethodPost, "/api/stories/"+id.Hex()+"/ratings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	storyRepo.AssertNotCalled(t, "PushRating", mock.Anything, mock.Anything, mock.Anything)
}
