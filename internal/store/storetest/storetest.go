// Package storetest provides an in-memory account store with the same
// uniqueness and ordering semantics as the Postgres store, for use in tests.
package storetest

import (
	"context"
	"sort"
	"sync"

	"github.com/ezasdf/users-api/internal/store"
	"github.com/ezasdf/users-api/types"
)

// Store is an in-memory store. InTx works on a copy of the table that is
// swapped in only when fn succeeds.
type Store struct {
	mu     sync.Mutex
	table  *table
	FailOn error
}

type table struct {
	users  map[int]types.User
	nextID int
}

func New() *Store {
	return &Store{table: &table{users: map[int]types.User{}, nextID: 1}}
}

// Users returns a repository that applies each call directly.
func (s *Store) Users() store.UserStore {
	return &repo{s: s}
}

// InTx runs fn against a snapshot and commits it only on success.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, users store.UserStore) error) error {
	s.mu.Lock()
	snapshot := s.table.clone()
	s.mu.Unlock()

	tx := &repo{s: s, tx: snapshot}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.table = snapshot
	s.mu.Unlock()
	return nil
}

// Put stores user as-is, assigning an ID when it has none.
func (s *Store) Put(user types.User) types.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = s.table.nextID
	}
	if user.ID >= s.table.nextID {
		s.table.nextID = user.ID + 1
	}
	s.table.users[user.ID] = user
	return user
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.table.users)
}

func (t *table) clone() *table {
	users := make(map[int]types.User, len(t.users))
	for id, u := range t.users {
		users[id] = u
	}
	return &table{users: users, nextID: t.nextID}
}

type repo struct {
	s  *Store
	tx *table
}

func (r *repo) do(fn func(t *table) error) error {
	if r.s.FailOn != nil {
		return r.s.FailOn
	}
	if r.tx != nil {
		return fn(r.tx)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return fn(r.s.table)
}

func (r *repo) find(match func(types.User) bool) (types.User, error) {
	var found types.User
	err := r.do(func(t *table) error {
		ids := make([]int, 0, len(t.users))
		for id := range t.users {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			if match(t.users[id]) {
				found = t.users[id]
				return nil
			}
		}
		return store.ErrNotFound
	})
	return found, err
}

func (r *repo) GetByID(_ context.Context, id int) (types.User, error) {
	return r.find(func(u types.User) bool { return u.ID == id })
}

func (r *repo) GetByUsername(_ context.Context, username string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Username == username })
}

func (r *repo) GetByEmail(_ context.Context, email string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Email == email })
}

func (r *repo) GetByUsernameOrEmail(_ context.Context, username, email string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Username == username || u.Email == email })
}

func (r *repo) List(_ context.Context) ([]types.User, error) {
	users := []types.User{}
	err := r.do(func(t *table) error {
		for _, u := range t.users {
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID > users[j].ID
	})
	return users, nil
}

func (r *repo) Create(_ context.Context, user types.User) (types.User, error) {
	err := r.do(func(t *table) error {
		for _, u := range t.users {
			if u.Username == user.Username || u.Email == user.Email {
				return store.ErrConflict
			}
		}
		user.ID = t.nextID
		t.nextID++
		t.users[user.ID] = user
		return nil
	})
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *repo) SetActive(_ context.Context, id int, active bool) (types.User, error) {
	return r.update(id, func(u *types.User) { u.Active = active })
}

func (r *repo) SetAdmin(_ context.Context, id int, admin bool) (types.User, error) {
	return r.update(id, func(u *types.User) { u.Admin = admin })
}

func (r *repo) update(id int, fn func(*types.User)) (types.User, error) {
	var updated types.User
	err := r.do(func(t *table) error {
		u, ok := t.users[id]
		if !ok {
			return store.ErrNotFound
		}
		fn(&u)
		t.users[id] = u
		updated = u
		return nil
	})
	return updated, err
}
