package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"circle-service/internal/models"
)

var (
	ErrSelfFriend   = errors.New("cannot friend yourself")
	ErrEdgeExists   = errors.New("already friends")
	ErrEdgeNotFound = errors.New("friend edge not found")
)

// FriendRepository abstracts the friend graph. Edges are stored once per
// side; the two writes of AddFriend are deliberately independent, so a crash
// between them leaves an asymmetric edge for the reconciler to repair.
type FriendRepository interface {
	AddFriend(ctx context.Context, userID, peerID int) error
	RemoveFriend(ctx context.Context, userID, peerID int) error
	SetNickname(ctx context.Context, ownerID, peerID int, nickname string) error
	ListFriends(ctx context.Context, userID int) ([]models.Friend, error)
	AreFriends(ctx context.Context, userID, peerID int) (bool, error)
	ListAsymmetric(ctx context.Context, grace time.Duration) ([]models.FriendEdge, error)
	InsertEdge(ctx context.Context, ownerID, peerID int) error
}

// FriendRepo is a sqlx implementation of FriendRepository.
type FriendRepo struct {
	db *sqlx.DB
}

// NewFriendRepo constructs a FriendRepo.
func NewFriendRepo(db *sqlx.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

// AddFriend creates both sides of the edge in two separate writes.
func (r *FriendRepo) AddFriend(ctx context.Context, userID, peerID int) error {
	if userID == peerID {
		return ErrSelfFriend
	}
	exists, err := r.AreFriends(ctx, userID, peerID)
	if err != nil {
		return err
	}
	if exists {
		return ErrEdgeExists
	}

	if err := r.InsertEdge(ctx, userID, peerID); err != nil {
		return err
	}
	return r.InsertEdge(ctx, peerID, userID)
}

// InsertEdge writes a single side of an edge. Idempotent, used by AddFriend
// and by the reconciler to restore a missing mirror row.
func (r *FriendRepo) InsertEdge(ctx context.Context, ownerID, peerID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO friends (owner_id, peer_id, nickname) VALUES ($1, $2, '')
         ON CONFLICT (owner_id, peer_id) DO NOTHING`, ownerID, peerID)
	return err
}

// RemoveFriend deletes both sides of the edge. Either side may already be
// gone; removal is a no-op then.
func (r *FriendRepo) RemoveFriend(ctx context.Context, userID, peerID int) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM friends WHERE owner_id=$1 AND peer_id=$2`, userID, peerID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM friends WHERE owner_id=$1 AND peer_id=$2`, peerID, userID)
	return err
}

// SetNickname renames the peer on the owner's side only.
func (r *FriendRepo) SetNickname(ctx context.Context, ownerID, peerID int, nickname string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE friends SET nickname=$1 WHERE owner_id=$2 AND peer_id=$3`, nickname, ownerID, peerID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrEdgeNotFound
	}
	return nil
}

// ListFriends returns the user's edges joined to the live peer identities.
// Rows written before nicknames existed carry NULL; COALESCE normalizes them
// to the empty nickname before anything downstream sees them.
func (r *FriendRepo) ListFriends(ctx context.Context, userID int) ([]models.Friend, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT f.peer_id, COALESCE(f.nickname, '') AS nickname,
                u.username, u.tag, u.avatar, u.online, u.last_seen_at
         FROM friends f INNER JOIN users u ON u.id = f.peer_id
         WHERE f.owner_id=$1 ORDER BY f.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Friend
	for rows.Next() {
		var f models.Friend
		if err := rows.Scan(&f.PeerID, &f.Nickname, &f.Username, &f.Tag, &f.Avatar, &f.Online, &f.LastSeenAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// AreFriends reports whether the user's side of the edge exists.
func (r *FriendRepo) AreFriends(ctx context.Context, userID, peerID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM friends WHERE owner_id=$1 AND peer_id=$2)`, userID, peerID)
	return exists, err
}

// ListAsymmetric finds edges older than the grace period whose mirror row is
// missing.
func (r *FriendRepo) ListAsymmetric(ctx context.Context, grace time.Duration) ([]models.FriendEdge, error) {
	var edges []models.FriendEdge
	err := r.db.SelectContext(ctx, &edges,
		`SELECT f.owner_id, f.peer_id, COALESCE(f.nickname, '') AS nickname, f.created_at
         FROM friends f
         WHERE f.created_at < NOW() - ($1 * INTERVAL '1 second')
         AND NOT EXISTS (SELECT 1 FROM friends m WHERE m.owner_id = f.peer_id AND m.peer_id = f.owner_id)`,
		int64(grace.Seconds()))
	return edges, err
}
