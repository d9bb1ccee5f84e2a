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

	"circle-service/internal/mocks"
	"circle-service/internal/models"
	"circle-service/internal/repositories"
	"circle-service/internal/ws"
)

type messageMocks struct {
	messageRepo *mocks.MessageRepositoryMock
	unreadRepo  *mocks.UnreadRepositoryMock
	friendRepo  *mocks.FriendRepositoryMock
	groupRepo   *mocks.GroupRepositoryMock
	userRepo    *mocks.UserRepositoryMock
}

func setupMessageRouter() (*gin.Engine, messageMocks) {
	m := messageMocks{
		messageRepo: new(mocks.MessageRepositoryMock),
		unreadRepo:  new(mocks.UnreadRepositoryMock),
		friendRepo:  new(mocks.FriendRepositoryMock),
		groupRepo:   new(mocks.GroupRepositoryMock),
		userRepo:    new(mocks.UserRepositoryMock),
	}
	handler := NewMessageHandler(m.messageRepo, m.unreadRepo, m.friendRepo, m.groupRepo, m.userRepo, ws.NewHub(), nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/channels/:channel_key/messages", handler.GetChannelMessages)
	r.POST("/channels/:channel_key/messages", handler.PostChannelMessage)
	r.POST("/channels/:channel_key/view", handler.ViewChannel)
	r.POST("/channels/:channel_key/messages/:message_id/reactions", handler.ToggleReaction)
	return r, m
}

func TestPostDirectMessageSuccess(t *testing.T) {
	router, m := setupMessageRouter()

	m.friendRepo.On("AreFriends", mock.Anything, 1, 2).Return(true, nil).Once()
	m.userRepo.On("GetByID", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	m.messageRepo.On("Append", mock.Anything, "1_2", 1, "alice", "hey", (*models.ReplyRef)(nil)).
		Return(models.Message{ID: 3, ChannelKey: "1_2", SenderID: 1, SenderName: "alice", Content: "hey"}, nil).Once()
	m.unreadRepo.On("Increment", mock.Anything, "1_2", []int{2}).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/1_2/messages", bytes.NewBufferString(`{"content":"hey"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	m.messageRepo.AssertExpectations(t)
	m.unreadRepo.AssertExpectations(t)
	m.friendRepo.AssertExpectations(t)
}

func TestPostDirectMessageNotFriends(t *testing.T) {
	router, m := setupMessageRouter()

	m.friendRepo.On("AreFriends", mock.Anything, 1, 2).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/1_2/messages", bytes.NewBufferString(`{"content":"hey"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	m.messageRepo.AssertNotCalled(t, "Append")
	m.unreadRepo.AssertNotCalled(t, "Increment")
}

func TestPostDirectMessageNotInPair(t *testing.T) {
	router, m := setupMessageRouter()

	req := httptest.NewRequest(http.MethodPost, "/channels/2_3/messages", bytes.NewBufferString(`{"content":"hey"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	m.friendRepo.AssertNotCalled(t, "AreFriends")
}

func TestPostGroupMessageBumpsEveryOtherMember(t *testing.T) {
	router, m := setupMessageRouter()

	m.groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()
	m.userRepo.On("GetByID", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	m.messageRepo.On("Append", mock.Anything, "g9", 1, "alice", "hello all", (*models.ReplyRef)(nil)).
		Return(models.Message{ID: 7, ChannelKey: "g9", SenderID: 1, Content: "hello all"}, nil).Once()
	m.groupRepo.On("MemberIDs", mock.Anything, 9).Return([]int{1, 2, 3}, nil).Once()
	m.unreadRepo.On("Increment", mock.Anything, "g9", []int{2, 3}).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/g9/messages", bytes.NewBufferString(`{"content":"hello all"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	m.unreadRepo.AssertExpectations(t)
}

func TestPostMessageReplyTargetWrongChannel(t *testing.T) {
	router, m := setupMessageRouter()

	m.friendRepo.On("AreFriends", mock.Anything, 1, 2).Return(true, nil).Once()
	m.userRepo.On("GetByID", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	m.messageRepo.On("GetMessage", mock.Anything, 11).Return(models.Message{ID: 11, ChannelKey: "g9"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/1_2/messages", bytes.NewBufferString(`{"content":"re","reply_to_id":11}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	m.messageRepo.AssertNotCalled(t, "Append")
}

func TestPostMessageEmptyContentRejected(t *testing.T) {
	router, m := setupMessageRouter()

	m.friendRepo.On("AreFriends", mock.Anything, 1, 2).Return(true, nil).Once()
	m.userRepo.On("GetByID", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	m.messageRepo.On("Append", mock.Anything, "1_2", 1, "alice", "   ", (*models.ReplyRef)(nil)).
		Return(models.Message{}, repositories.ErrEmptyMessage).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/1_2/messages", bytes.NewBufferString(`{"content":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	m.unreadRepo.AssertNotCalled(t, "Increment")
}

func TestViewChannelRecordsReceipt(t *testing.T) {
	router, m := setupMessageRouter()

	latest := models.Message{ID: 5, ChannelKey: "1_2", SenderID: 2, Content: "hi"}
	m.unreadRepo.On("Reset", mock.Anything, 1, "1_2").Return(nil).Once()
	m.messageRepo.On("LatestMessage", mock.Anything, "1_2").Return(latest, nil).Once()
	m.userRepo.On("GetByID", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	m.messageRepo.On("RecordReceipt", mock.Anything, 5, 1, "alice").Return(nil).Once()
	refreshed := latest
	refreshed.SeenBy = []int{1}
	m.messageRepo.On("GetMessage", mock.Anything, 5).Return(refreshed, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/1_2/view", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"unread":0`)
	m.messageRepo.AssertExpectations(t)
	m.unreadRepo.AssertExpectations(t)
}

func TestViewChannelOwnLatestSkipsReceipt(t *testing.T) {
	router, m := setupMessageRouter()

	m.unreadRepo.On("Reset", mock.Anything, 1, "1_2").Return(nil).Once()
	m.messageRepo.On("LatestMessage", mock.Anything, "1_2").
		Return(models.Message{ID: 5, ChannelKey: "1_2", SenderID: 1}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/1_2/view", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	m.messageRepo.AssertNotCalled(t, "RecordReceipt")
}

func TestViewChannelEmptyStream(t *testing.T) {
	router, m := setupMessageRouter()

	m.unreadRepo.On("Reset", mock.Anything, 1, "1_2").Return(nil).Once()
	m.messageRepo.On("LatestMessage", mock.Anything, "1_2").
		Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/1_2/view", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"unread":0`)
}

func TestToggleReactionSuccess(t *testing.T) {
	router, m := setupMessageRouter()

	m.messageRepo.On("GetMessage", mock.Anything, 5).Return(models.Message{ID: 5, ChannelKey: "1_2"}, nil).Once()
	m.messageRepo.On("ToggleReaction", mock.Anything, 5, 1, "❤️").
		Return(models.Message{ID: 5, ChannelKey: "1_2", Reactions: []models.ReactionGroup{{Emoji: "❤️", Count: 1, UserIDs: []int{1}}}}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/1_2/messages/5/reactions", bytes.NewBufferString(`{"emoji":"❤️"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	m.messageRepo.AssertExpectations(t)
}

func TestToggleReactionWrongChannel(t *testing.T) {
	router, m := setupMessageRouter()

	m.messageRepo.On("GetMessage", mock.Anything, 5).Return(models.Message{ID: 5, ChannelKey: "g9"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/1_2/messages/5/reactions", bytes.NewBufferString(`{"emoji":"👍"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	m.messageRepo.AssertNotCalled(t, "ToggleReaction")
}

func TestGetGroupMessagesIncludesSeenSummary(t *testing.T) {
	router, m := setupMessageRouter()

	msgs := []models.Message{
		{ID: 1, ChannelKey: "g9", Content: "first"},
		{ID: 2, ChannelKey: "g9", Content: "last", Receipts: []models.Receipt{
			{UserID: 2, Username: "bob", SeenAt: time.Now()},
		}},
	}
	m.groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()
	m.messageRepo.On("ListChannelMessages", mock.Anything, "g9").Return(msgs, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/channels/g9/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Seen by 1 member: bob")
}

func TestGetMessagesInvalidChannelKey(t *testing.T) {
	router, _ := setupMessageRouter()

	req := httptest.NewRequest(http.MethodGet, "/channels/g-bad/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
