package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetAvatar(ctx context.Context, username string) (*models.Image, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Image), args.Error(1)
}

func (m *MockUserRepository) GetSocialLists(ctx context.Context, username string) ([]string, []string, error) {
	args := m.Called(ctx, username)
	return args.Get(0).([]string), args.Get(1).([]string), args.Error(2)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, username, bio, email string) (*models.User, error) {
	args := m.Called(ctx, username, bio, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetAvatar(ctx context.Context, username string, img models.Image) error {
	args := m.Called(ctx, username, img)
	return args.Error(0)
}

func (m *MockUserRepository) SetCover(ctx context.Context, username string, img models.Image) error {
	args := m.Called(ctx, username, img)
	return args.Error(0)
}

func (m *MockUserRepository) SetPasswordByEmail(ctx context.Context, email, passwordHash string) error {
	args := m.Called(ctx, email, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) PushFollower(ctx context.Context, username, follower string) error {
	args := m.Called(ctx, username, follower)
	return args.Error(0)
}

func (m *MockUserRepository) PullFollower(ctx context.Context, username, follower string) error {
	args := m.Called(ctx, username, follower)
	return args.Error(0)
}

func (m *MockUserRepository) PushFollowing(ctx context.Context, username, followee string) error {
	args := m.Called(ctx, username, followee)
	return args.Error(0)
}

func (m *MockUserRepository) PullFollowing(ctx context.Context, username, followee string) error {
	args := m.Called(ctx, username, followee)
	return args.Error(0)
}

// noopMailer satisfies mail.Sender without sending anything.
type noopMailer struct{}

func (noopMailer) SendWelcome(_, _ string)   {}
func (noopMailer) SendResetCode(_, _ string) {}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test_secret",
		DefaultAvatarURL: "https://img.test/default.jpg",
		DefaultAvatarID:  "defaults/avatar",
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(*MockUserRepository)
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]string{
				"username": "testuser",
				"email":    "test@example.com",
				"password": "Password123!",
			},
			mockSetup: func(repo *MockUserRepository) {
				repo.On("GetByUsername", mock.Anything, "testuser").Return(nil, nil)
				repo.On("GetByEmail", mock.Anything, "test@example.com").Return(nil, nil)
				repo.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Duplicate Username",
			body: map[string]string{
				"username": "taken",
				"email":    "new@example.com",
				"password": "Password123!",
			},
			mockSetup: func(repo *MockUserRepository) {
				repo.On("GetByUsername", mock.Anything, "taken").Return(&models.User{Username: "taken"}, nil)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "Duplicate Email",
			body: map[string]string{
				"username": "newuser",
				"email":    "exists@example.com",
				"password": "Password123!",
			},
			mockSetup: func(repo *MockUserRepository) {
				repo.On("GetByUsername", mock.Anything, "newuser").Return(nil, nil)
				repo.On("GetByEmail", mock.Anything, "exists@example.com").Return(&models.User{Username: "other"}, nil)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "Invalid Email",
			body: map[string]string{
				"username": "testuser",
				"email":    "not-an-email",
				"password": "Password123!",
			},
			mockSetup:      func(*MockUserRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Missing Fields",
			body: map[string]string{
				"username": "testuser",
			},
			mockSetup:      func(*MockUserRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			mockRepo := new(MockUserRepository)
			s := &Server{
				config:     testConfig(),
				userRepo:   mockRepo,
				mailer:     noopMailer{},
				resetCodes: cache.NewResetCodes(nil),
			}
			app.Post("/register", s.Register)

			tt.mockSetup(mockRepo)
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, _ := app.Test(req)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestRegisterAssignsDefaultAvatar(t *testing.T) {
	app := fiber.New()
	mockRepo := new(MockUserRepository)
	s := &Server{
		config:   testConfig(),
		userRepo: mockRepo,
		mailer:   noopMailer{},
	}
	app.Post("/register", s.Register)

	mockRepo.On("GetByUsername", mock.Anything, "testuser").Return(nil, nil)
	mockRepo.On("GetByEmail", mock.Anything, "test@example.com").Return(nil, nil)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Avatar.URL == "https://img.test/default.jpg" && u.Avatar.PublicID == "defaults/avatar"
	})).Return(nil)

	body, _ := json.Marshal(map[string]string{
		"username": "testuser",
		"email":    "test@example.com",
		"password": "Password123!",
	})
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	mockRepo.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("Password123!"), bcrypt.MinCost)
	stored := &models.User{Username: "testuser", Password: string(hashed)}

	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(*MockUserRepository)
		expectedStatus int
		wantToken      bool
	}{
		{
			name: "Success",
			body: map[string]string{"username": "testuser", "password": "Password123!"},
			mockSetup: func(repo *MockUserRepository) {
				repo.On("GetByUsername", mock.Anything, "testuser").Return(stored, nil)
			},
			expectedStatus: http.StatusOK,
			wantToken:      true,
		},
		{
			name: "Unknown User",
			body: map[string]string{"username": "nobody", "password": "Password123!"},
			mockSetup: func(repo *MockUserRepository) {
				repo.On("GetByUsername", mock.Anything, "nobody").Return(nil, nil)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Wrong Password",
			body: map[string]string{"username": "testuser", "password": "nope"},
			mockSetup: func(repo *MockUserRepository) {
				repo.On("GetByUsername", mock.Anything, "testuser").Return(stored, nil)
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			mockRepo := new(MockUserRepository)
			s := &Server{config: testConfig(), userRepo: mockRepo}
			app.Post("/login", s.Login)

			tt.mockSetup(mockRepo)
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, _ := app.Test(req)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.wantToken {
				var result struct {
					Token string `json:"token"`
				}
				assert.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
				assert.NotEmpty(t, result.Token)
			}
		})
	}
}

func TestPasswordChallenge(t *testing.T) {
	app := fiber.New()
	mockRepo := new(MockUserRepository)
	s := &Server{config: testConfig(), userRepo: mockRepo}
	app.Post("/password-challenge", s.PasswordChallenge)

	mockRepo.On("GetByUsername", mock.Anything, "testuser").Return(
		&models.User{Username: "testuser", Password: "$2a$10$storedhash"}, nil)

	body, _ := json.Marshal(map[string]string{"username": "testuser"})
	req := httptest.NewRequest(http.MethodPost, "/password-challenge", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Password string `json:"password"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "$2a$10$storedhash", result.Password)
}
