package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"circle-service/internal/repositories"
)

// PresenceHandler accepts session lifecycle signals from clients. A tab
// going hidden maps to offline, visible back to online. A client that dies
// without sending anything leaves presence stale until its next signal.
type PresenceHandler struct {
	userRepo repositories.UserRepository
}

// NewPresenceHandler constructs a PresenceHandler.
func NewPresenceHandler(userRepo repositories.UserRepository) *PresenceHandler {
	return &PresenceHandler{userRepo: userRepo}
}

// Update handles POST /presence.
func (h *PresenceHandler) Update(c *gin.Context) {
	var req struct {
		State string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	var err error
	switch req.State {
	case "visible":
		err = h.userRepo.SetOnline(c.Request.Context(), userID)
	case "hidden":
		err = h.userRepo.SetOffline(c.Request.Context(), userID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "state must be visible or hidden"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update presence"})
		return
	}
	c.Status(http.StatusNoContent)
}
