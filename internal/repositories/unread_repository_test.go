package repositories

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func expectIncrement(mock sqlmock.Sqlmock, userID int, channelKey string, current int) {
	mock.ExpectQuery(`SELECT COALESCE`).
		WithArgs(userID, channelKey).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(current))
	mock.ExpectExec(`INSERT INTO unread_counters`).
		WithArgs(userID, channelKey, current+1).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestIncrementReadsThenWritesPlusOne(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUnreadRepo(db)

	// Two sends to the same recipient: each pass reads the current value
	// and writes back exactly one more.
	expectIncrement(mock, 2, "1_2", 0)
	require.NoError(t, repo.Increment(context.Background(), "1_2", []int{2}))

	expectIncrement(mock, 2, "1_2", 1)
	require.NoError(t, repo.Increment(context.Background(), "1_2", []int{2}))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementBumpsEveryRecipient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUnreadRepo(db)

	expectIncrement(mock, 2, "g9", 3)
	expectIncrement(mock, 3, "g9", 0)

	require.NoError(t, repo.Increment(context.Background(), "g9", []int{2, 3}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetWritesZero(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUnreadRepo(db)

	mock.ExpectExec(`INSERT INTO unread_counters`).
		WithArgs(2, "1_2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Reset(context.Background(), 2, "1_2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountsSkipsZeroRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUnreadRepo(db)

	mock.ExpectQuery(`SELECT channel_key, count FROM unread_counters`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"channel_key", "count"}).
			AddRow("1_2", 4).
			AddRow("g9", 1))

	counts, err := repo.Counts(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"1_2": 4, "g9": 1}, counts)
}
