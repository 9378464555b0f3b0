package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAuthTestApp(s *Server) *fiber.App {
	app := fiber.New()
	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"username": getUsername(c),
			"is_admin": getIsAdmin(c),
		})
	})
	return app
}

func signedToken(t *testing.T, secret string, mutate func(jwt.MapClaims)) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      primitive.NewObjectID().Hex(),
		"username": "testuser",
		"admin":    false,
		"iss":      "inkwell-api",
		"aud":      "inkwell-client",
		"exp":      now.Add(3 * time.Hour).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthRequiredMissingToken(t *testing.T) {
	s := &Server{config: testConfig()}
	app := newAuthTestApp(s)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequiredExpiredToken(t *testing.T) {
	s := &Server{config: testConfig()}
	app := newAuthTestApp(s)

	token := signedToken(t, "test_secret", func(claims jwt.MapClaims) {
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
	})
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequiredMalformedToken(t *testing.T) {
	s := &Server{config: testConfig()}
	app := newAuthTestApp(s)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	// Non-expiry verification failures surface as a server error, not a 401.
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAuthRequiredWrongSecret(t *testing.T) {
	s := &Server{config: testConfig()}
	app := newAuthTestApp(s)

	token := signedToken(t, "other_secret", nil)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAuthRequiredValidToken(t *testing.T) {
	s := &Server{config: testConfig()}
	app := newAuthTestApp(s)

	token := signedToken(t, "test_secret", func(claims jwt.MapClaims) {
		claims["admin"] = true
	})
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Username string `json:"username"`
		IsAdmin  bool   `json:"is_admin"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "testuser", result.Username)
	assert.True(t, result.IsAdmin)
}

func TestAuthRequiredTokenViaQuery(t *testing.T) {
	s := &Server{config: testConfig()}
	app := newAuthTestApp(s)

	token := signedToken(t, "test_secret", nil)
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequiredWrongIssuer(t *testing.T) {
	s := &Server{config: testConfig()}
	app := newAuthTestApp(s)

	token := signedToken(t, "test_secret", func(claims jwt.MapClaims) {
		claims["iss"] = "someone-else"
	})
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestGeneratedTokenPassesAuth(t *testing.T) {
	s := &Server{config: testConfig()}
	app := newAuthTestApp(s)

	user := &models.User{ID: primitive.NewObjectID(), Username: "writer", IsAdmin: false}
	token, err := s.generateToken(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
