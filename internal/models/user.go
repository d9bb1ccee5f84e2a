package models

import "time"

// User is a registered identity. The (username_lower, tag) pair is unique
// system-wide; the tag never changes after registration.
type User struct {
	ID                   int        `db:"id" json:"id"`
	Email                string     `db:"email" json:"email"`
	PasswordHash         string     `db:"password_hash" json:"-"`
	Username             string     `db:"username" json:"username"`
	UsernameLower        string     `db:"username_lower" json:"-"`
	Tag                  string     `db:"tag" json:"tag"`
	Avatar               string     `db:"avatar" json:"avatar"`
	Bio                  string     `db:"bio" json:"bio"`
	Online               bool       `db:"online" json:"online"`
	LastSeenAt           *time.Time `db:"last_seen_at" json:"last_seen_at,omitempty"`
	LastUsernameChangeAt *time.Time `db:"last_username_change_at" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
}

// Handle returns the globally unique username#tag form.
func (u User) Handle() string {
	return u.Username + "#" + u.Tag
}
