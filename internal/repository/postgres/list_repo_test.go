package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestListRepository_AddMembers(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts with conflict skip", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		emails := []string{"a@x.com", "b@x.com"}
		mock.ExpectExec(`INSERT INTO list_members .* ON CONFLICT DO NOTHING`).
			WithArgs(int64(3), pq.Array(emails)).
			WillReturnResult(sqlmock.NewResult(0, 2))

		require.NoError(t, NewListRepository(db).AddMembers(ctx, 3, emails))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty input issues no query", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, NewListRepository(db).AddMembers(ctx, 3, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListRepository_IsMember(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(3), "Guest@X.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewListRepository(db).IsMember(context.Background(), 3, "Guest@X.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
