package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ezasdf/users-api/internal/db"
	"github.com/ezasdf/users-api/types"
)

// UserStore is the account persistence contract used by the service layer
// and the authorization gate.
type UserStore interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetActive(ctx context.Context, id int, active bool) (types.User, error)
	SetAdmin(ctx context.Context, id int, admin bool) (types.User, error)
}

// UserRepository handles persistence for users on a connection or a
// transaction.
type UserRepository struct {
	db db.DBTX
}

func NewUserRepository(conn db.DBTX) *UserRepository {
	return &UserRepository{db: conn}
}

const userColumns = `id, username, email, password_hash, active, admin, created_at`

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1`
	return r.getOne(ctx, query, username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return r.getOne(ctx, query, email)
}

// GetByUsernameOrEmail returns the oldest account matching either field.
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1 OR email = $2
		ORDER BY id
		LIMIT 1`
	return r.getOne(ctx, query, username, email)
}

// List returns all accounts, newest first.
func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Create inserts user and returns it with its assigned ID. CreatedAt must be
// set by the caller. A duplicate username or email yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		INSERT INTO users (username, email, password_hash, active, admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Active,
		user.Admin,
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, fmt.Errorf("create user: %w", ErrConflict)
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) SetActive(ctx context.Context, id int, active bool) (types.User, error) {
	const query = `
		UPDATE users
		SET active = $1
		WHERE id = $2
		RETURNING ` + userColumns
	return r.getOne(ctx, query, active, id)
}

func (r *UserRepository) SetAdmin(ctx context.Context, id int, admin bool) (types.User, error) {
	const query = `
		UPDATE users
		SET admin = $1
		WHERE id = $2
		RETURNING ` + userColumns
	return r.getOne(ctx, query, admin, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (types.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Active,
		&user.Admin,
		&user.CreatedAt,
	)
	return user, err
}
