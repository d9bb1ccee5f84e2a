package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"circle-service/internal/channel"
	"circle-service/internal/models"
	"circle-service/internal/observability"
	"circle-service/internal/repositories"
	"circle-service/internal/telemetry"
	"circle-service/internal/ws"
)

// MessageHandler manages channel message streams, views and reactions.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
	unreadRepo  repositories.UnreadRepository
	friendRepo  repositories.FriendRepository
	groupRepo   repositories.GroupRepository
	userRepo    repositories.UserRepository
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(messageRepo repositories.MessageRepository, unreadRepo repositories.UnreadRepository, friendRepo repositories.FriendRepository, groupRepo repositories.GroupRepository, userRepo repositories.UserRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		messageRepo: messageRepo,
		unreadRepo:  unreadRepo,
		friendRepo:  friendRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		hub:         hub,
		audit:       audit,
	}
}

// GetChannelMessages returns the channel's ordered stream.
func (h *MessageHandler) GetChannelMessages(c *gin.Context) {
	channelKey, ok := h.requireChannelMember(c)
	if !ok {
		return
	}

	msgs, err := h.messageRepo.ListChannelMessages(c.Request.Context(), channelKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	resp := gin.H{"messages": msgs}
	if channel.IsGroup(channelKey) && len(msgs) > 0 {
		if summary := msgs[len(msgs)-1].SeenSummary(); summary != "" {
			resp["seen_summary"] = summary
		}
	}
	c.JSON(http.StatusOK, resp)
}

// PostChannelMessage appends a message, bumps recipients' unread counters
// and broadcasts the append.
func (h *MessageHandler) PostChannelMessage(c *gin.Context) {
	channelKey, ok := h.requireChannelMember(c)
	if !ok {
		return
	}

	var req struct {
		Content   string `json:"content" binding:"required"`
		ReplyToID *int   `json:"reply_to_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	ctx := c.Request.Context()

	if !channel.IsGroup(channelKey) {
		peerID, err := channel.DirectPeer(channelKey, userID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel key"})
			return
		}
		friends, err := h.friendRepo.AreFriends(ctx, userID, peerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify friendship"})
			return
		}
		if !friends {
			c.JSON(http.StatusForbidden, gin.H{"error": "users are not friends"})
			return
		}
	}

	sender, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sender"})
		return
	}

	var replyTo *models.ReplyRef
	if req.ReplyToID != nil {
		target, err := h.messageRepo.GetMessage(ctx, *req.ReplyToID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, repositories.ErrMessageNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": "reply target not found"})
			return
		}
		if target.ChannelKey != channelKey {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reply target does not belong to channel"})
			return
		}
		replyTo = &models.ReplyRef{MessageID: target.ID, Text: target.Content, SenderName: target.SenderName}
	}

	msg, err := h.messageRepo.Append(ctx, channelKey, userID, sender.Username, req.Content, replyTo)
	if err != nil {
		if errors.Is(err, repositories.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message text is empty"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	recipients, err := h.recipients(ctx, channelKey, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve recipients"})
		return
	}
	if err := h.unreadRepo.Increment(ctx, channelKey, recipients); err != nil {
		// The counter is best effort; the message itself is already stored.
		h.emitAudit(c, "ERROR", "unread increment failed")
	}

	h.hub.BroadcastMessage(channelKey, msg)
	observability.IncMessageSent(ws.ChannelKind(channelKey))
	h.emitAudit(c, "INFO", "Message sent")
	c.JSON(http.StatusCreated, msg)
}

// ViewChannel marks the channel as viewed: the unread counter resets to
// zero and the latest message gains the viewer's receipt.
func (h *MessageHandler) ViewChannel(c *gin.Context) {
	channelKey, ok := h.requireChannelMember(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	ctx := c.Request.Context()

	if err := h.unreadRepo.Reset(ctx, userID, channelKey); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset unread counter"})
		return
	}

	latest, err := h.messageRepo.LatestMessage(ctx, channelKey)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusOK, gin.H{"channel_key": channelKey, "unread": 0})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load latest message"})
		return
	}

	if latest.SenderID != userID {
		viewer, err := h.userRepo.GetByID(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load viewer"})
			return
		}
		if err := h.messageRepo.RecordReceipt(ctx, latest.ID, userID, viewer.Username); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record receipt"})
			return
		}
		refreshed, err := h.messageRepo.GetMessage(ctx, latest.ID)
		if err == nil {
			h.hub.BroadcastUpdate(channelKey, refreshed)
			latest = refreshed
		}
	}

	c.JSON(http.StatusOK, gin.H{"channel_key": channelKey, "unread": 0, "last_message": latest})
}

// ToggleReaction flips the caller's emoji reaction on a message. Toggling
// twice restores the prior state.
func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	channelKey, ok := h.requireChannelMember(c)
	if !ok {
		return
	}

	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	msg, err := h.messageRepo.GetMessage(ctx, messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.ChannelKey != channelKey {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to channel"})
		return
	}

	userID := c.GetInt("userID")
	updated, err := h.messageRepo.ToggleReaction(ctx, messageID, userID, req.Emoji)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not toggle reaction"})
		return
	}

	h.hub.BroadcastUpdate(channelKey, updated)
	c.JSON(http.StatusOK, updated)
}

// recipients resolves everyone who should see an unread bump for a send.
func (h *MessageHandler) recipients(ctx context.Context, channelKey string, senderID int) ([]int, error) {
	if channel.IsGroup(channelKey) {
		groupID, err := channel.ParseGroup(channelKey)
		if err != nil {
			return nil, err
		}
		memberIDs, err := h.groupRepo.MemberIDs(ctx, groupID)
		if err != nil {
			return nil, err
		}
		recipients := make([]int, 0, len(memberIDs))
		for _, id := range memberIDs {
			if id != senderID {
				recipients = append(recipients, id)
			}
		}
		return recipients, nil
	}
	peerID, err := channel.DirectPeer(channelKey, senderID)
	if err != nil {
		return nil, err
	}
	return []int{peerID}, nil
}

func (h *MessageHandler) requireChannelMember(c *gin.Context) (string, bool) {
	channelKey := c.Param("channel_key")
	userID := c.GetInt("userID")

	member, err := channelMember(c.Request.Context(), h.groupRepo, channelKey, userID)
	if err != nil {
		if errors.Is(err, channel.ErrInvalidKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel key"})
			return "", false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return "", false
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a channel member"})
		return "", false
	}
	return channelKey, true
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
