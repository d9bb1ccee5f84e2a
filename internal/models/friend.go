package models

import "time"

// FriendEdge is one side of a friendship. Each side stores its own private
// nickname; a healthy graph has a mirror row for every edge.
type FriendEdge struct {
	OwnerID   int       `db:"owner_id" json:"owner_id"`
	PeerID    int       `db:"peer_id" json:"peer_id"`
	Nickname  string    `db:"nickname" json:"nickname"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Friend is an edge resolved to the live peer identity.
type Friend struct {
	PeerID     int        `json:"peer_id"`
	Username   string     `json:"username"`
	Tag        string     `json:"tag"`
	Nickname   string     `json:"nickname"`
	Avatar     string     `json:"avatar"`
	Online     bool       `json:"online"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// DisplayName prefers the private nickname over the peer's username.
func (f Friend) DisplayName() string {
	if f.Nickname != "" {
		return f.Nickname
	}
	return f.Username
}
