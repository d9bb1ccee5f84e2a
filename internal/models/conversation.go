package models

// Conversation is one sidebar entry: a friend or a group resolved to its
// channel, with the last message and the viewer's unread count attached.
type Conversation struct {
	Kind        string   `json:"kind"` // "direct" or "group"
	ChannelKey  string   `json:"channel_key"`
	Name        string   `json:"name"`
	FriendID    int      `json:"friend_id,omitempty"`
	GroupID     int      `json:"group_id,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
	Online      bool     `json:"online,omitempty"`
	Unread      int      `json:"unread"`
	LastMessage *Message `json:"last_message,omitempty"`
}
