package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"circle-service/internal/models"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Register(ctx context.Context, email, passwordHash, username, avatar string) (models.User, error) {
	args := m.Called(ctx, email, passwordHash, username, avatar)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, userIDs []int) ([]models.User, error) {
	args := m.Called(ctx, userIDs)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) Search(ctx context.Context, usernameLower, tag string) ([]models.User, error) {
	args := m.Called(ctx, usernameLower, tag)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfile(ctx context.Context, userID int, username, bio, avatar *string) (models.User, error) {
	args := m.Called(ctx, userID, username, bio, avatar)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) SetOnline(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *UserRepositoryMock) SetOffline(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type FriendRepositoryMock struct {
	mock.Mock
}

func (m *FriendRepositoryMock) AddFriend(ctx context.Context, userID, peerID int) error {
	args := m.Called(ctx, userID, peerID)
	return args.Error(0)
}

func (m *FriendRepositoryMock) RemoveFriend(ctx context.Context, userID, peerID int) error {
	args := m.Called(ctx, userID, peerID)
	return args.Error(0)
}

func (m *FriendRepositoryMock) SetNickname(ctx context.Context, ownerID, peerID int, nickname string) error {
	args := m.Called(ctx, ownerID, peerID, nickname)
	return args.Error(0)
}

func (m *FriendRepositoryMock) ListFriends(ctx context.Context, userID int) ([]models.Friend, error) {
	args := m.Called(ctx, userID)
	var friends []models.Friend
	if val := args.Get(0); val != nil {
		friends = val.([]models.Friend)
	}
	return friends, args.Error(1)
}

func (m *FriendRepositoryMock) AreFriends(ctx context.Context, userID, peerID int) (bool, error) {
	args := m.Called(ctx, userID, peerID)
	return args.Bool(0), args.Error(1)
}

func (m *FriendRepositoryMock) ListAsymmetric(ctx context.Context, grace time.Duration) ([]models.FriendEdge, error) {
	args := m.Called(ctx, grace)
	var edges []models.FriendEdge
	if val := args.Get(0); val != nil {
		edges = val.([]models.FriendEdge)
	}
	return edges, args.Error(1)
}

func (m *FriendRepositoryMock) InsertEdge(ctx context.Context, ownerID, peerID int) error {
	args := m.Called(ctx, ownerID, peerID)
	return args.Error(0)
}

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Group, error) {
	args := m.Called(ctx, ownerID, name, memberIDs)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	var groups []models.Group
	if val := args.Get(0); val != nil {
		groups = val.([]models.Group)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *GroupRepositoryMock) Members(ctx context.Context, groupID int) ([]models.GroupMember, error) {
	args := m.Called(ctx, groupID)
	var members []models.GroupMember
	if val := args.Get(0); val != nil {
		members = val.([]models.GroupMember)
	}
	return members, args.Error(1)
}

func (m *GroupRepositoryMock) MemberIDs(ctx context.Context, groupID int) ([]int, error) {
	args := m.Called(ctx, groupID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *GroupRepositoryMock) AddMembers(ctx context.Context, groupID int, memberIDs []int) error {
	args := m.Called(ctx, groupID, memberIDs)
	return args.Error(0)
}

func (m *GroupRepositoryMock) RemoveMember(ctx context.Context, groupID, userID int) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) DeleteGroup(ctx context.Context, groupID int) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, channelKey string, senderID int, senderName, content string, replyTo *models.ReplyRef) (models.Message, error) {
	args := m.Called(ctx, channelKey, senderID, senderName, content, replyTo)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListChannelMessages(ctx context.Context, channelKey string) ([]models.Message, error) {
	args := m.Called(ctx, channelKey)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) LatestMessage(ctx context.Context, channelKey string) (models.Message, error) {
	args := m.Called(ctx, channelKey)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) LatestMessages(ctx context.Context, channelKeys []string) (map[string]models.Message, error) {
	args := m.Called(ctx, channelKeys)
	var msgs map[string]models.Message
	if val := args.Get(0); val != nil {
		msgs = val.(map[string]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ToggleReaction(ctx context.Context, messageID, userID int, emoji string) (models.Message, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) RecordReceipt(ctx context.Context, messageID, userID int, username string) error {
	args := m.Called(ctx, messageID, userID, username)
	return args.Error(0)
}

type UnreadRepositoryMock struct {
	mock.Mock
}

func (m *UnreadRepositoryMock) Increment(ctx context.Context, channelKey string, recipientIDs []int) error {
	args := m.Called(ctx, channelKey, recipientIDs)
	return args.Error(0)
}

func (m *UnreadRepositoryMock) Reset(ctx context.Context, userID int, channelKey string) error {
	args := m.Called(ctx, userID, channelKey)
	return args.Error(0)
}

func (m *UnreadRepositoryMock) Counts(ctx context.Context, userID int) (map[string]int, error) {
	args := m.Called(ctx, userID)
	var counts map[string]int
	if val := args.Get(0); val != nil {
		counts = val.(map[string]int)
	}
	return counts, args.Error(1)
}
