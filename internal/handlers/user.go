package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"circle-service/internal/repositories"
)

// UserHandler manages profile endpoints.
type UserHandler struct {
	userRepo repositories.UserRepository
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(c *gin.Context) {
	userID := c.GetInt("userID")
	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe mutates username, bio or avatar. The tag never changes; username
// renames are subject to the cooldown.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req struct {
		Username *string `json:"username"`
		Bio      *string `json:"bio"`
		Avatar   *string `json:"avatar"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Username != nil {
		trimmed := strings.ReplaceAll(*req.Username, " ", "")
		if len(trimmed) < 3 || len(trimmed) > 20 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username must be 3-20 characters"})
			return
		}
		req.Username = &trimmed
	}

	userID := c.GetInt("userID")
	user, err := h.userRepo.UpdateProfile(c.Request.Context(), userID, req.Username, req.Bio, req.Avatar)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrUsernameCooldown):
			c.JSON(http.StatusConflict, gin.H{"error": "username was changed less than 7 days ago"})
		case errors.Is(err, repositories.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "username and tag already taken"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update profile"})
		}
		return
	}
	c.JSON(http.StatusOK, user)
}

// Search finds users by exact username, optionally narrowed by tag.
func (h *UserHandler) Search(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	// "name#TAG" narrows the search to one handle.
	tag := strings.ToUpper(strings.TrimSpace(c.Query("tag")))
	if idx := strings.IndexByte(username, '#'); idx >= 0 {
		tag = strings.ToUpper(username[idx+1:])
		username = username[:idx]
	}

	users, err := h.userRepo.Search(c.Request.Context(), strings.ToLower(username), tag)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
