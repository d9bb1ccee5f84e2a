package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"circle-service/internal/repositories"
	"circle-service/internal/telemetry"
)

// FriendHandler manages the friend graph endpoints.
type FriendHandler struct {
	friendRepo repositories.FriendRepository
	userRepo   repositories.UserRepository
	audit      *telemetry.AuditEmitter
}

// NewFriendHandler constructs a FriendHandler.
func NewFriendHandler(friendRepo repositories.FriendRepository, userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *FriendHandler {
	return &FriendHandler{friendRepo: friendRepo, userRepo: userRepo, audit: audit}
}

// ListFriends returns the caller's circle resolved to live identities.
func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID := c.GetInt("userID")
	friends, err := h.friendRepo.ListFriends(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friends"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// AddFriend creates the symmetric edge between the caller and a peer.
func (h *FriendHandler) AddFriend(c *gin.Context) {
	var req struct {
		FriendID int `json:"friend_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if _, err := h.userRepo.GetByID(c.Request.Context(), req.FriendID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	if err := h.friendRepo.AddFriend(c.Request.Context(), userID, req.FriendID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrSelfFriend):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot friend yourself"})
		case errors.Is(err, repositories.ErrEdgeExists):
			c.JSON(http.StatusConflict, gin.H{"error": "already friends"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add friend"})
		}
		return
	}

	h.emitAudit(c, "INFO", "Friend added")
	c.Status(http.StatusCreated)
}

// RemoveFriend deletes both sides of the edge. Removing an absent edge is a
// no-op, so the call is idempotent.
func (h *FriendHandler) RemoveFriend(c *gin.Context) {
	friendID, err := strconv.Atoi(c.Param("friend_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friend id"})
		return
	}

	userID := c.GetInt("userID")
	if err := h.friendRepo.RemoveFriend(c.Request.Context(), userID, friendID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove friend"})
		return
	}

	h.emitAudit(c, "INFO", "Friend removed")
	c.Status(http.StatusNoContent)
}

// SetNickname renames the peer on the caller's side only; the peer never
// sees it.
func (h *FriendHandler) SetNickname(c *gin.Context) {
	friendID, err := strconv.Atoi(c.Param("friend_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friend id"})
		return
	}

	var req struct {
		Nickname string `json:"nickname"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if err := h.friendRepo.SetNickname(c.Request.Context(), userID, friendID, req.Nickname); err != nil {
		if errors.Is(err, repositories.ErrEdgeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not friends"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not set nickname"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *FriendHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
