package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ezasdf/users-api/internal/apperr"
	"github.com/ezasdf/users-api/internal/auth"
	"github.com/ezasdf/users-api/internal/store"
	"github.com/ezasdf/users-api/types"
)

// Store vends account repositories, either standalone or bound to a
// transaction.
type Store interface {
	Users() store.UserStore
	InTx(ctx context.Context, fn func(ctx context.Context, users store.UserStore) error) error
}

// EventPublisher hands account events to the message queue.
type EventPublisher interface {
	Publish(ctx context.Context, event types.AccountEvent) error
}

// Recorder counts account operation results.
type Recorder interface {
	RecordSignup(result string)
	RecordSignin(result string)
	RecordEvent(result string)
}

// SignupInput carries the fields needed to create an account.
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SigninInput identifies an account by username or email.
type SigninInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserService encapsulates account use-cases.
type UserService struct {
	store   Store
	hasher  *auth.PasswordHasher
	tokens  *auth.TokenManager
	clock   auth.Clock
	events  EventPublisher
	metrics Recorder
	logger  *slog.Logger
}

type Option func(*UserService)

func WithClock(clock auth.Clock) Option {
	return func(s *UserService) { s.clock = clock }
}

// WithEvents enables publishing of account events.
func WithEvents(events EventPublisher) Option {
	return func(s *UserService) { s.events = events }
}

func WithMetrics(metrics Recorder) Option {
	return func(s *UserService) { s.metrics = metrics }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *UserService) { s.logger = logger }
}

func NewUserService(st Store, hasher *auth.PasswordHasher, tokens *auth.TokenManager, opts ...Option) *UserService {
	s := &UserService{
		store:  st,
		hasher: hasher,
		tokens: tokens,
		clock:  auth.SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup creates an active, non-admin account and returns it with a fresh
// token. The insert and token issue share a transaction.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (types.User, string, error) {
	var (
		user  types.User
		token string
	)
	err := s.store.InTx(ctx, func(ctx context.Context, users store.UserStore) error {
		var err error
		user, err = s.create(ctx, users, in)
		if err != nil {
			return err
		}
		token, err = s.tokens.Issue(user.ID, s.clock.Now())
		if err != nil {
			return apperr.Wrap(apperr.Internal, apperr.MsgTryAgain, err)
		}
		return nil
	})
	if err != nil {
		s.recordSignup(resultOf(err))
		return types.User{}, "", err
	}

	s.recordSignup("success")
	s.logger.InfoContext(ctx, "account signed up", slog.Int("user_id", user.ID))
	s.publish(ctx, types.AccountCreated, user)
	return user, token, nil
}

// Signin checks credentials and returns the account with a fresh token. An
// unknown account and a wrong password are indistinguishable to the caller.
func (s *UserService) Signin(ctx context.Context, in SigninInput) (types.User, string, error) {
	user, token, err := s.signin(ctx, in)
	if err != nil {
		s.recordSignin(resultOf(err))
		return types.User{}, "", err
	}
	s.recordSignin("success")
	s.publish(ctx, types.AccountSignedIn, user)
	return user, token, nil
}

func (s *UserService) signin(ctx context.Context, in SigninInput) (types.User, string, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if in.Password == "" || (username == "" && email == "") {
		return types.User{}, "", apperr.New(apperr.InvalidPayload, apperr.MsgInvalidPayload)
	}

	var (
		user types.User
		err  error
	)
	if username != "" {
		user, err = s.store.Users().GetByUsername(ctx, username)
	} else {
		user, err = s.store.Users().GetByEmail(ctx, email)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", apperr.Wrap(apperr.NotFound, apperr.MsgUserNotFound, err)
		}
		return types.User{}, "", apperr.Wrap(apperr.Internal, apperr.MsgTryAgain, err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return types.User{}, "", apperr.New(apperr.NotFound, apperr.MsgUserNotFound)
	}

	token, err := s.tokens.Issue(user.ID, s.clock.Now())
	if err != nil {
		return types.User{}, "", apperr.Wrap(apperr.Internal, apperr.MsgTryAgain, err)
	}
	return user, token, nil
}

// CreateUser adds an account on behalf of an admin.
func (s *UserService) CreateUser(ctx context.Context, actor types.User, in SignupInput) (types.User, error) {
	if !auth.IsAdmin(actor) {
		return types.User{}, apperr.New(apperr.PermissionDenied, apperr.MsgPermissionDenied)
	}

	var user types.User
	err := s.store.InTx(ctx, func(ctx context.Context, users store.UserStore) error {
		var err error
		user, err = s.create(ctx, users, in)
		return err
	})
	if err != nil {
		s.recordSignup(resultOf(err))
		return types.User{}, err
	}

	s.recordSignup("success")
	s.logger.InfoContext(ctx, "account added by admin",
		slog.Int("user_id", user.ID),
		slog.Int("actor_id", actor.ID),
	)
	s.publish(ctx, types.AccountCreated, user)
	return user, nil
}

// AddAdmin creates an account and promotes it in one transaction.
func (s *UserService) AddAdmin(ctx context.Context, in SignupInput) (types.User, error) {
	var user types.User
	err := s.store.InTx(ctx, func(ctx context.Context, users store.UserStore) error {
		created, err := s.create(ctx, users, in)
		if err != nil {
			return err
		}
		user, err = users.SetAdmin(ctx, created.ID, true)
		if err != nil {
			return apperr.Wrap(apperr.Internal, apperr.MsgTryAgain, err)
		}
		return nil
	})
	if err != nil {
		return types.User{}, err
	}

	s.publish(ctx, types.AccountCreated, user)
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return types.User{}, lookupError(err)
	}
	return user, nil
}

// List returns every account, newest first.
func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, apperr.MsgTryAgain, err)
	}
	return users, nil
}

// SetActive activates or deactivates an account. Deactivated accounts fail
// authorization even with an unexpired token.
func (s *UserService) SetActive(ctx context.Context, id int, active bool) (types.User, error) {
	user, err := s.store.Users().SetActive(ctx, id, active)
	if err != nil {
		return types.User{}, lookupError(err)
	}
	s.logger.InfoContext(ctx, "account active flag changed",
		slog.Int("user_id", id),
		slog.Bool("active", active),
	)
	s.publish(ctx, types.AccountUpdated, user)
	return user, nil
}

func (s *UserService) SetAdmin(ctx context.Context, id int, admin bool) (types.User, error) {
	user, err := s.store.Users().SetAdmin(ctx, id, admin)
	if err != nil {
		return types.User{}, lookupError(err)
	}
	s.logger.InfoContext(ctx, "account admin flag changed",
		slog.Int("user_id", id),
		slog.Bool("admin", admin),
	)
	s.publish(ctx, types.AccountUpdated, user)
	return user, nil
}

func (s *UserService) create(ctx context.Context, users store.UserStore, in SignupInput) (types.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return types.User{}, apperr.New(apperr.InvalidPayload, apperr.MsgInvalidPayload)
	}

	_, err := users.GetByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return types.User{}, apperr.New(apperr.Conflict, apperr.MsgUserExists)
	case !errors.Is(err, store.ErrNotFound):
		return types.User{}, apperr.Wrap(apperr.Internal, apperr.MsgTryAgain, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, apperr.Wrap(apperr.Internal, apperr.MsgTryAgain, err)
	}

	user, err := users.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    s.clock.Now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, apperr.Wrap(apperr.Conflict, apperr.MsgUserExists, err)
		}
		return types.User{}, apperr.Wrap(apperr.Internal, apperr.MsgTryAgain, err)
	}
	return user, nil
}

func (s *UserService) publish(ctx context.Context, eventType types.AccountEventType, user types.User) {
	if s.events == nil {
		return
	}
	event := types.NewAccountEvent(eventType, user, s.clock.Now())
	if err := s.events.Publish(ctx, event); err != nil {
		s.recordEvent("failed")
		s.logger.WarnContext(ctx, "failed to publish account event",
			slog.String("type", string(eventType)),
			slog.Int("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.recordEvent("published")
}

func (s *UserService) recordSignup(result string) {
	if s.metrics != nil {
		s.metrics.RecordSignup(result)
	}
}

func (s *UserService) recordSignin(result string) {
	if s.metrics != nil {
		s.metrics.RecordSignin(result)
	}
}

func (s *UserService) recordEvent(result string) {
	if s.metrics != nil {
		s.metrics.RecordEvent(result)
	}
}

func lookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, apperr.MsgUserNotFound, err)
	}
	return apperr.Wrap(apperr.Internal, apperr.MsgTryAgain, err)
}

func resultOf(err error) string {
	switch apperr.KindOf(err) {
	case apperr.InvalidPayload:
		return "invalid"
	case apperr.Conflict:
		return "conflict"
	case apperr.NotFound:
		return "not_found"
	case apperr.PermissionDenied:
		return "denied"
	default:
		return "error"
	}
}
