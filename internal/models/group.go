package models

import "time"

// Group represents a chat group.
type Group struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   int       `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GroupMember is a group membership entry resolved to the live identity.
type GroupMember struct {
	UserID   int       `db:"user_id" json:"user_id"`
	Username string    `db:"username" json:"username"`
	Avatar   string    `db:"avatar" json:"avatar"`
	Online   bool      `db:"online" json:"online"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
