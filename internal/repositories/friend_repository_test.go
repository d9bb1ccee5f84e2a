package repositories

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFriendWritesBothSides(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFriendRepo(db)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO friends`).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO friends`).
		WithArgs(2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddFriend(context.Background(), 1, 2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddFriendExistingEdge(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFriendRepo(db)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.AddFriend(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrEdgeExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddFriendSelf(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewFriendRepo(db)

	err := repo.AddFriend(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrSelfFriend)
}

func TestRemoveFriendDeletesBothSides(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFriendRepo(db)

	mock.ExpectExec(`DELETE FROM friends`).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM friends`).
		WithArgs(2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RemoveFriend(context.Background(), 1, 2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveFriendAbsentEdgeIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFriendRepo(db)

	mock.ExpectExec(`DELETE FROM friends`).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM friends`).
		WithArgs(2, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.RemoveFriend(context.Background(), 1, 2))
}

func TestSetNicknameMissingEdge(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFriendRepo(db)

	mock.ExpectExec(`UPDATE friends SET nickname`).
		WithArgs("bestie", 1, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetNickname(context.Background(), 1, 7, "bestie")
	assert.ErrorIs(t, err, ErrEdgeNotFound)
}
