package repositories

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"circle-service/internal/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrTagExhausted     = errors.New("no free tag for username")
	ErrUsernameTaken    = errors.New("username and tag already taken")
	ErrUsernameCooldown = errors.New("username changed too recently")
)

const (
	tagAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tagLength   = 4
	tagAttempts = 10

	// usernameCooldown is the minimum gap between username changes,
	// enforced at write time rather than by the store.
	usernameCooldown = 7 * 24 * time.Hour
)

// UserRepository abstracts identity persistence.
type UserRepository interface {
	Register(ctx context.Context, email, passwordHash, username, avatar string) (models.User, error)
	GetByID(ctx context.Context, userID int) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	BulkUsers(ctx context.Context, userIDs []int) ([]models.User, error)
	Search(ctx context.Context, usernameLower, tag string) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID int, username, bio, avatar *string) (models.User, error)
	SetOnline(ctx context.Context, userID int) error
	SetOffline(ctx context.Context, userID int) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, email, password_hash, username, username_lower, tag, avatar, bio, online, last_seen_at, last_username_change_at, created_at`

// Register creates an identity with a freshly allocated tag. Tag allocation
// is an optimistic check-then-insert bounded at tagAttempts draws; the unique
// index on (username_lower, tag) rejects the loser of a concurrent race.
func (r *UserRepo) Register(ctx context.Context, email, passwordHash, username, avatar string) (models.User, error) {
	lower := strings.ToLower(username)

	tag, err := pickTag(func(candidate string) (bool, error) {
		var exists bool
		err := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM users WHERE username_lower=$1 AND tag=$2)`, lower, candidate)
		return exists, err
	})
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO users (email, password_hash, username, username_lower, tag, avatar)
         VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+userColumns,
		email, passwordHash, username, lower, tag, avatar).StructScan(&user)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == "users_email_key" {
				return models.User{}, ErrEmailTaken
			}
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, err
	}
	return user, nil
}

// pickTag draws uniform candidates from the tag alphabet until taken reports
// a free one, up to the attempt bound.
func pickTag(taken func(tag string) (bool, error)) (string, error) {
	for i := 0; i < tagAttempts; i++ {
		tag, err := randTag()
		if err != nil {
			return "", err
		}
		inUse, err := taken(tag)
		if err != nil {
			return "", err
		}
		if !inUse {
			return tag, nil
		}
	}
	return "", ErrTagExhausted
}

// tagRand is the randomness source for tag draws, a variable so tests can
// feed deterministic bytes.
var tagRand io.Reader = rand.Reader

func randTag() (string, error) {
	// Bytes at or above the largest multiple of the alphabet size are
	// redrawn: mapping them through modulo would make the low alphabet
	// positions slightly more likely than the rest.
	limit := 256 - 256%len(tagAlphabet)
	out := make([]byte, 0, tagLength)
	buf := make([]byte, tagLength)
	for len(out) < tagLength {
		n := tagLength - len(out)
		if _, err := io.ReadFull(tagRand, buf[:n]); err != nil {
			return "", err
		}
		for _, b := range buf[:n] {
			if int(b) >= limit {
				continue
			}
			out = append(out, tagAlphabet[int(b)%len(tagAlphabet)])
		}
	}
	return string(out), nil
}

// GetByID fetches a single identity.
func (r *UserRepo) GetByID(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByEmail fetches an identity by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// BulkUsers fetches identities for a set of ids.
func (r *UserRepo) BulkUsers(ctx context.Context, userIDs []int) ([]models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []models.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, pq.Array(userIDs))
	return users, err
}

// Search finds identities by exact lowercased username, optionally narrowed
// to one tag.
func (r *UserRepo) Search(ctx context.Context, usernameLower, tag string) ([]models.User, error) {
	var users []models.User
	if tag != "" {
		err := r.db.SelectContext(ctx, &users,
			`SELECT `+userColumns+` FROM users WHERE username_lower=$1 AND tag=$2`, usernameLower, tag)
		return users, err
	}
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE username_lower=$1 ORDER BY tag`, usernameLower)
	return users, err
}

// UpdateProfile mutates username, bio or avatar. Username changes keep the
// existing tag and respect the rename cooldown.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID int, username, bio, avatar *string) (models.User, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	if username != nil && *username != user.Username {
		if user.LastUsernameChangeAt != nil && time.Since(*user.LastUsernameChangeAt) < usernameCooldown {
			return models.User{}, ErrUsernameCooldown
		}
		lower := strings.ToLower(*username)
		_, err = r.db.ExecContext(ctx,
			`UPDATE users SET username=$1, username_lower=$2, last_username_change_at=NOW() WHERE id=$3`,
			*username, lower, userID)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return models.User{}, ErrUsernameTaken
			}
			return models.User{}, err
		}
	}
	if bio != nil {
		if _, err := r.db.ExecContext(ctx, `UPDATE users SET bio=$1 WHERE id=$2`, *bio, userID); err != nil {
			return models.User{}, err
		}
	}
	if avatar != nil {
		if _, err := r.db.ExecContext(ctx, `UPDATE users SET avatar=$1 WHERE id=$2`, *avatar, userID); err != nil {
			return models.User{}, err
		}
	}
	return r.GetByID(ctx, userID)
}

// SetOnline marks the user online.
func (r *UserRepo) SetOnline(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET online=TRUE WHERE id=$1`, userID)
	return err
}

// SetOffline marks the user offline and stamps last_seen_at.
func (r *UserRepo) SetOffline(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET online=FALSE, last_seen_at=NOW() WHERE id=$1`, userID)
	return err
}
