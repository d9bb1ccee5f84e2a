package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"circle-service/internal/models"
)

// UnreadRepository maintains the per-viewer, per-channel unread ledger.
type UnreadRepository interface {
	Increment(ctx context.Context, channelKey string, recipientIDs []int) error
	Reset(ctx context.Context, userID int, channelKey string) error
	Counts(ctx context.Context, userID int) (map[string]int, error)
}

// UnreadRepo is a sqlx implementation of UnreadRepository.
type UnreadRepo struct {
	db *sqlx.DB
}

// NewUnreadRepo constructs an UnreadRepo.
func NewUnreadRepo(db *sqlx.DB) *UnreadRepo {
	return &UnreadRepo{db: db}
}

// Increment bumps each recipient's counter by one. The counter is a
// best-effort read-current-then-write ledger, matching the observed product
// behavior: two near-simultaneous senders can read the same base value and
// undercount. Do not replace with an atomic increment without a product
// decision.
func (r *UnreadRepo) Increment(ctx context.Context, channelKey string, recipientIDs []int) error {
	for _, recipientID := range recipientIDs {
		var current int
		err := r.db.GetContext(ctx, &current,
			`SELECT COALESCE((SELECT count FROM unread_counters WHERE user_id=$1 AND channel_key=$2), 0)`,
			recipientID, channelKey)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO unread_counters (user_id, channel_key, count) VALUES ($1, $2, $3)
             ON CONFLICT (user_id, channel_key) DO UPDATE SET count = EXCLUDED.count`,
			recipientID, channelKey, current+1); err != nil {
			return err
		}
	}
	return nil
}

// Reset zeroes the viewer's counter for a channel.
func (r *UnreadRepo) Reset(ctx context.Context, userID int, channelKey string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO unread_counters (user_id, channel_key, count) VALUES ($1, $2, 0)
         ON CONFLICT (user_id, channel_key) DO UPDATE SET count = 0`, userID, channelKey)
	return err
}

// Counts returns all nonzero counters for the viewer.
func (r *UnreadRepo) Counts(ctx context.Context, userID int) (map[string]int, error) {
	var entries []models.UnreadEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT channel_key, count FROM unread_counters WHERE user_id=$1 AND count > 0`, userID)
	if err != nil {
		return nil, err
	}
	result := make(map[string]int, len(entries))
	for _, e := range entries {
		result[e.ChannelKey] = e.Count
	}
	return result, nil
}
