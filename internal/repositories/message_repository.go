package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"circle-service/internal/models"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyMessage    = errors.New("message text is empty")
)

// MessageRepository defines interactions with channel message streams.
type MessageRepository interface {
	Append(ctx context.Context, channelKey string, senderID int, senderName, content string, replyTo *models.ReplyRef) (models.Message, error)
	ListChannelMessages(ctx context.Context, channelKey string) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	LatestMessage(ctx context.Context, channelKey string) (models.Message, error)
	LatestMessages(ctx context.Context, channelKeys []string) (map[string]models.Message, error)
	ToggleReaction(ctx context.Context, messageID, userID int, emoji string) (models.Message, error)
	RecordReceipt(ctx context.Context, messageID, userID int, username string) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, channel_key, sender_id, sender_name, content, reply_to_id, reply_to_text, reply_to_sender, created_at`

// Append stores a message with a server-assigned timestamp. Ordering within
// a channel is (created_at, id); ids break timestamp ties.
func (r *MessageRepo) Append(ctx context.Context, channelKey string, senderID int, senderName, content string, replyTo *models.ReplyRef) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrEmptyMessage
	}

	var replyID *int
	var replyText, replySender *string
	if replyTo != nil {
		replyID = &replyTo.MessageID
		replyText = &replyTo.Text
		replySender = &replyTo.SenderName
	}

	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (channel_key, sender_id, sender_name, content, reply_to_id, reply_to_text, reply_to_sender)
         VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+messageColumns,
		channelKey, senderID, senderName, content, replyID, replyText, replySender).StructScan(&msg)
	return msg, err
}

// ListChannelMessages returns the channel's stream ascending by creation,
// with reactions attached to every message and receipts attached to the
// latest one.
func (r *MessageRepo) ListChannelMessages(ctx context.Context, channelKey string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE channel_key=$1 ORDER BY created_at ASC, id ASC`, channelKey)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	ids := make([]int, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	reactions, err := r.loadReactions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].Reactions = reactions[msgs[i].ID]
	}

	// Receipts are tracked for the latest message only.
	last := &msgs[len(msgs)-1]
	if err := r.attachReceipts(ctx, last); err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetMessage retrieves a single message with its reactions and receipts.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}

	reactions, err := r.loadReactions(ctx, []int{msg.ID})
	if err != nil {
		return models.Message{}, err
	}
	msg.Reactions = reactions[msg.ID]
	if err := r.attachReceipts(ctx, &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// LatestMessage returns the newest message of a channel.
func (r *MessageRepo) LatestMessage(ctx context.Context, channelKey string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages WHERE channel_key=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, channelKey)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// LatestMessages returns the newest message per channel for a set of keys.
func (r *MessageRepo) LatestMessages(ctx context.Context, channelKeys []string) (map[string]models.Message, error) {
	result := make(map[string]models.Message, len(channelKeys))
	if len(channelKeys) == 0 {
		return result, nil
	}
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT DISTINCT ON (channel_key) `+messageColumns+`
         FROM messages WHERE channel_key = ANY($1)
         ORDER BY channel_key, created_at DESC, id DESC`, pq.Array(channelKeys))
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		result[m.ChannelKey] = m
	}
	return result, nil
}

// ToggleReaction adds the (user, emoji) reaction, or removes it when it is
// already present, and returns the refreshed message. Toggling twice is a
// no-op overall.
func (r *MessageRepo) ToggleReaction(ctx context.Context, messageID, userID int, emoji string) (models.Message, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM message_reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`,
		messageID, userID, emoji)
	if err != nil {
		return models.Message{}, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return models.Message{}, err
	}
	if count == 0 {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO message_reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)
             ON CONFLICT DO NOTHING`, messageID, userID, emoji); err != nil {
			return models.Message{}, err
		}
	}
	return r.GetMessage(ctx, messageID)
}

// RecordReceipt upserts the viewer's seen record for a message. One row per
// viewer, so concurrent viewers never overwrite each other.
func (r *MessageRepo) RecordReceipt(ctx context.Context, messageID, userID int, username string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO message_receipts (message_id, user_id, username) VALUES ($1, $2, $3)
         ON CONFLICT (message_id, user_id) DO NOTHING`, messageID, userID, username)
	return err
}

func (r *MessageRepo) loadReactions(ctx context.Context, messageIDs []int) (map[int][]models.ReactionGroup, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT message_id, emoji, user_id FROM message_reactions
         WHERE message_id = ANY($1) ORDER BY message_id, emoji, created_at`, pq.Array(messageIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type key struct {
		messageID int
		emoji     string
	}
	groups := map[key]*models.ReactionGroup{}
	order := map[int][]key{}
	for rows.Next() {
		var messageID, userID int
		var emoji string
		if err := rows.Scan(&messageID, &emoji, &userID); err != nil {
			return nil, err
		}
		k := key{messageID, emoji}
		g, ok := groups[k]
		if !ok {
			g = &models.ReactionGroup{Emoji: emoji}
			groups[k] = g
			order[messageID] = append(order[messageID], k)
		}
		g.Count++
		g.UserIDs = append(g.UserIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make(map[int][]models.ReactionGroup, len(order))
	for messageID, keys := range order {
		for _, k := range keys {
			result[messageID] = append(result[messageID], *groups[k])
		}
	}
	return result, nil
}

func (r *MessageRepo) attachReceipts(ctx context.Context, msg *models.Message) error {
	var receipts []models.Receipt
	err := r.db.SelectContext(ctx, &receipts,
		`SELECT user_id, username, seen_at FROM message_receipts WHERE message_id=$1 ORDER BY seen_at`, msg.ID)
	if err != nil {
		return err
	}
	msg.Receipts = receipts
	for _, rec := range receipts {
		msg.SeenBy = append(msg.SeenBy, rec.UserID)
	}
	return nil
}
