package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"circle-service/internal/channel"
	"circle-service/internal/models"
	"circle-service/internal/repositories"
)

// ConversationHandler serves the ranked sidebar: friends and groups merged
// into one list ordered by last-message time.
type ConversationHandler struct {
	friendRepo  repositories.FriendRepository
	groupRepo   repositories.GroupRepository
	messageRepo repositories.MessageRepository
	unreadRepo  repositories.UnreadRepository
}

// NewConversationHandler constructs a ConversationHandler.
func NewConversationHandler(friendRepo repositories.FriendRepository, groupRepo repositories.GroupRepository, messageRepo repositories.MessageRepository, unreadRepo repositories.UnreadRepository) *ConversationHandler {
	return &ConversationHandler{
		friendRepo:  friendRepo,
		groupRepo:   groupRepo,
		messageRepo: messageRepo,
		unreadRepo:  unreadRepo,
	}
}

// ListConversations returns the caller's conversations, most recently
// active first. Channels without any message sort last.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")
	ctx := c.Request.Context()

	friends, err := h.friendRepo.ListFriends(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friends"})
		return
	}
	groups, err := h.groupRepo.ListGroupsForUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}

	conversations := make([]models.Conversation, 0, len(friends)+len(groups))
	keys := make([]string, 0, len(friends)+len(groups))
	for _, f := range friends {
		key := channel.Direct(userID, f.PeerID)
		keys = append(keys, key)
		conversations = append(conversations, models.Conversation{
			Kind:       "direct",
			ChannelKey: key,
			Name:       f.DisplayName(),
			FriendID:   f.PeerID,
			Avatar:     f.Avatar,
			Online:     f.Online,
		})
	}
	for _, g := range groups {
		key := channel.Group(g.ID)
		keys = append(keys, key)
		conversations = append(conversations, models.Conversation{
			Kind:       "group",
			ChannelKey: key,
			Name:       g.Name,
			GroupID:    g.ID,
		})
	}

	lastMessages, err := h.messageRepo.LatestMessages(ctx, keys)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load last messages"})
		return
	}
	unread, err := h.unreadRepo.Counts(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread counts"})
		return
	}

	for i := range conversations {
		key := conversations[i].ChannelKey
		if msg, ok := lastMessages[key]; ok {
			m := msg
			conversations[i].LastMessage = &m
		}
		conversations[i].Unread = unread[key]
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		a, b := conversations[i].LastMessage, conversations[j].LastMessage
		switch {
		case a == nil && b == nil:
			return false
		case b == nil:
			return true
		case a == nil:
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}
