package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ezasdf/users-api/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "username", "email", "password_hash", "active", "admin", "created_at"}

func newRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewUserRepository(conn), mock
}

func TestUserRepository_GetByID_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT\s+id, username, email, password_hash, active, admin, created_at\s+FROM users\s+WHERE id = \$1`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(7, "test", "test@test.com", "$2a$04$hash", true, false, created))

	got, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, types.User{
		ID:           7,
		Username:     "test",
		Email:        "test@test.com",
		PasswordHash: "$2a$04$hash",
		Active:       true,
		CreatedAt:    created,
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
		WithArgs(404).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_GetByID_BeyondInt32(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
		WithArgs(3000000000).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 3000000000)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUsernameOrEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)WHERE username = \$1 OR email = \$2\s+ORDER BY id\s+LIMIT 1`).
		WithArgs("test", "other@test.com").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(1, "test", "test@test.com", "h", true, false, time.Now()))

	got, err := repo.GetByUsernameOrEmail(context.Background(), "test", "other@test.com")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ID)
}

func TestUserRepository_GetByEmailAndUsername_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`WHERE email = \$1`).WithArgs("a@b.c").WillReturnError(errors.New("db down"))
	mock.ExpectQuery(`WHERE username = \$1`).WithArgs("a").WillReturnError(errors.New("db down"))

	_, err := repo.GetByEmail(context.Background(), "a@b.c")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByUsername(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestUserRepository_List_OrdersNewestFirst(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	mock.ExpectQuery(`(?s)FROM users\s+ORDER BY created_at DESC, id DESC`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, "b", "b@test.com", "h", true, false, newer).
			AddRow(1, "a", "a@test.com", "h", true, false, older))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Username)
	assert.Equal(t, "a", got[1].Username)
}

func TestUserRepository_List_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM users`).WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	mock.ExpectQuery(`(?s)INSERT INTO users \(username, email, password_hash, active, admin, created_at\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)\s+RETURNING id`).
		WithArgs("test", "test@test.com", "hash", true, false, created).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	got, err := repo.Create(context.Background(), types.User{
		Username:     "test",
		Email:        "test@test.com",
		PasswordHash: "hash",
		Active:       true,
		CreatedAt:    created,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, got.ID)
	assert.Equal(t, created, got.CreatedAt)
}

func TestUserRepository_Create_UniqueViolationIsConflict(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := repo.Create(context.Background(), types.User{Username: "x", Email: "x@test.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserRepository_Create_OtherErrorIsNotConflict(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23502"})

	_, err := repo.Create(context.Background(), types.User{Username: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestUserRepository_SetActiveAndAdmin(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Now().UTC()

	mock.ExpectQuery(`(?s)UPDATE users\s+SET active = \$1\s+WHERE id = \$2\s+RETURNING`).
		WithArgs(false, 3).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(3, "c", "c@test.com", "h", false, false, created))
	mock.ExpectQuery(`(?s)UPDATE users\s+SET admin = \$1\s+WHERE id = \$2\s+RETURNING`).
		WithArgs(true, 3).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(3, "c", "c@test.com", "h", false, true, created))
	mock.ExpectQuery(`SET admin = \$1`).
		WithArgs(true, 99).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.SetActive(context.Background(), 3, false)
	require.NoError(t, err)
	assert.False(t, got.Active)

	got, err = repo.SetAdmin(context.Background(), 3, true)
	require.NoError(t, err)
	assert.True(t, got.Admin)

	_, err = repo.SetAdmin(context.Background(), 99, true)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InTxRollsBackOnConflict(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	st := New(conn)
	err = st.InTx(context.Background(), func(ctx context.Context, users UserStore) error {
		_, err := users.Create(ctx, types.User{Username: "dup", Email: "dup@test.com", PasswordHash: "h"})
		return err
	})
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
