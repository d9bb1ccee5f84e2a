package models

import (
	"fmt"
	"strings"
	"time"
)

// Message is one entry of a channel's append-only stream. Content is
// immutable once stored; reactions and receipts are the only mutable parts.
type Message struct {
	ID            int       `db:"id" json:"id"`
	ChannelKey    string    `db:"channel_key" json:"channel_key"`
	SenderID      int       `db:"sender_id" json:"sender_id"`
	SenderName    string    `db:"sender_name" json:"sender_name"`
	Content       string    `db:"content" json:"content"`
	ReplyToID     *int      `db:"reply_to_id" json:"reply_to_id,omitempty"`
	ReplyToText   *string   `db:"reply_to_text" json:"reply_to_text,omitempty"`
	ReplyToSender *string   `db:"reply_to_sender" json:"reply_to_sender,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`

	Reactions []ReactionGroup `db:"-" json:"reactions,omitempty"`
	// SeenBy carries the direct-channel receipt shape: ids of viewers who
	// have seen this message.
	SeenBy []int `db:"-" json:"seen_by,omitempty"`
	// Receipts carries the group-channel receipt shape: one sub-record per
	// viewer so concurrent viewers never overwrite each other.
	Receipts []Receipt `db:"-" json:"receipts,omitempty"`
}

// ReplyRef is the denormalized reference a reply carries to its target.
type ReplyRef struct {
	MessageID  int    `json:"message_id"`
	Text       string `json:"text"`
	SenderName string `json:"sender_name"`
}

// ReactionGroup is the per-emoji aggregate view of a message's reactions.
type ReactionGroup struct {
	Emoji   string `json:"emoji"`
	Count   int    `json:"count"`
	UserIDs []int  `json:"user_ids"`
}

// Receipt records that one viewer has seen a message.
type Receipt struct {
	UserID   int       `db:"user_id" json:"user_id"`
	Username string    `db:"username" json:"username"`
	SeenAt   time.Time `db:"seen_at" json:"seen_at"`
}

// SeenSummary formats the group receipt view: the viewer-set size plus the
// first few usernames.
func (m Message) SeenSummary() string {
	n := len(m.Receipts)
	if n == 0 {
		return ""
	}
	label := "members"
	if n == 1 {
		label = "member"
	}
	names := make([]string, 0, 3)
	for i, r := range m.Receipts {
		if i == 3 {
			break
		}
		names = append(names, r.Username)
	}
	return fmt.Sprintf("Seen by %d %s: %s", n, label, strings.Join(names, ", "))
}

// ChannelEvent is broadcast through channel websockets. History replays use
// type "history"; new appends use "message"; reaction or receipt changes
// re-emit the affected message as "update".
type ChannelEvent struct {
	Type     string    `json:"type"`
	Message  *Message  `json:"message,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}
