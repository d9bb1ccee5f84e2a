package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"circle-service/internal/auth"
	"circle-service/internal/mocks"
	"circle-service/internal/models"
	"circle-service/internal/repositories"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/auth/logout", handler.Logout)
	return r
}

func testTokens() *auth.TokenManager {
	return auth.NewTokenManager("test-secret", time.Hour)
}

func TestRegisterSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testTokens(), nil)
	router := setupAuthRouter(handler)

	userRepo.On("Register", mock.Anything, "a@example.com", mock.AnythingOfType("string"), "alice", mock.AnythingOfType("string")).
		Return(models.User{ID: 1, Email: "a@example.com", Username: "alice", Tag: "X2QA"}, nil).Once()
	userRepo.On("SetOnline", mock.Anything, 1).Return(nil).Once()

	body := bytes.NewBufferString(`{"email":"a@example.com","password":"secret1","username":"alice"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"token"`)
	require.Contains(t, rec.Body.String(), `"X2QA"`)
	userRepo.AssertExpectations(t)
}

func TestRegisterStripsSpacesFromUsername(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testTokens(), nil)
	router := setupAuthRouter(handler)

	userRepo.On("Register", mock.Anything, "a@example.com", mock.AnythingOfType("string"), "alicesmith", mock.AnythingOfType("string")).
		Return(models.User{ID: 1, Username: "alicesmith", Tag: "B7CD"}, nil).Once()
	userRepo.On("SetOnline", mock.Anything, 1).Return(nil).Once()

	body := bytes.NewBufferString(`{"email":"a@example.com","password":"secret1","username":"alice smith"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestRegisterShortPassword(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testTokens(), nil)
	router := setupAuthRouter(handler)

	body := bytes.NewBufferString(`{"email":"a@example.com","password":"abc","username":"alice"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertNotCalled(t, "Register")
}

func TestRegisterTagExhausted(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testTokens(), nil)
	router := setupAuthRouter(handler)

	userRepo.On("Register", mock.Anything, "a@example.com", mock.AnythingOfType("string"), "alice", mock.AnythingOfType("string")).
		Return(models.User{}, repositories.ErrTagExhausted).Once()

	body := bytes.NewBufferString(`{"email":"a@example.com","password":"secret1","username":"alice"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testTokens(), nil)
	router := setupAuthRouter(handler)

	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	userRepo.On("GetByEmail", mock.Anything, "a@example.com").
		Return(models.User{ID: 1, Email: "a@example.com", PasswordHash: hash}, nil).Once()
	userRepo.On("SetOnline", mock.Anything, 1).Return(nil).Once()

	body := bytes.NewBufferString(`{"email":"a@example.com","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"token"`)
	userRepo.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testTokens(), nil)
	router := setupAuthRouter(handler)

	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	userRepo.On("GetByEmail", mock.Anything, "a@example.com").
		Return(models.User{ID: 1, PasswordHash: hash}, nil).Once()

	body := bytes.NewBufferString(`{"email":"a@example.com","password":"wrong99"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertNotCalled(t, "SetOnline")
}

func TestLoginUnknownEmail(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testTokens(), nil)
	router := setupAuthRouter(handler)

	userRepo.On("GetByEmail", mock.Anything, "nobody@example.com").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"email":"nobody@example.com","password":"whatever"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutSetsOffline(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testTokens(), nil)
	router := setupAuthRouter(handler)

	userRepo.On("SetOffline", mock.Anything, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	userRepo.AssertExpectations(t)
}
