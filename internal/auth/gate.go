package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ezasdf/users-api/internal/apperr"
	"github.com/ezasdf/users-api/internal/store"
	"github.com/ezasdf/users-api/types"
)

// Outcome labels a terminal gate decision.
type Outcome string

const (
	OutcomeAuthorized     Outcome = "authorized"
	OutcomeMissingToken   Outcome = "missing_token"
	OutcomeMalformed      Outcome = "malformed"
	OutcomeExpired        Outcome = "expired"
	OutcomeUnknownAccount Outcome = "unknown_account"
	OutcomeInactive       Outcome = "inactive"
	OutcomeDenied         Outcome = "permission_denied"
	OutcomeError          Outcome = "error"
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errBadHeader     = errors.New("invalid authorization header")
)

// AccountFinder resolves an account by ID. It returns store.ErrNotFound when
// no such account exists.
type AccountFinder interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// DecisionRecorder counts gate outcomes.
type DecisionRecorder interface {
	RecordAuthDecision(outcome string)
}

// Gate turns an Authorization header into an active account or a terminal
// authorization failure.
type Gate struct {
	tokens   *TokenManager
	accounts AccountFinder
	clock    Clock
	recorder DecisionRecorder
	logger   *slog.Logger
}

// NewGate constructs a Gate. recorder and logger may be nil.
func NewGate(tokens *TokenManager, accounts AccountFinder, clock Clock, recorder DecisionRecorder, logger *slog.Logger) *Gate {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		tokens:   tokens,
		accounts: accounts,
		clock:    clock,
		recorder: recorder,
		logger:   logger,
	}
}

// Authorize runs the full header -> token -> account pipeline. On success the
// returned account is active.
func (g *Gate) Authorize(ctx context.Context, authorization string) (types.User, error) {
	token, err := BearerToken(authorization)
	if err != nil {
		g.record(OutcomeMissingToken)
		return types.User{}, apperr.Wrap(apperr.Forbidden, apperr.MsgProvideToken, err)
	}

	id, err := g.tokens.Verify(token, g.clock.Now())
	if err != nil {
		kind := Malformed
		errors.As(err, &kind)
		if kind == Expired {
			g.record(OutcomeExpired)
		} else {
			g.record(OutcomeMalformed)
		}
		return types.User{}, apperr.Wrap(apperr.Unauthorized, kind.Message(), err)
	}

	user, err := g.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.record(OutcomeUnknownAccount)
			g.logger.WarnContext(ctx, "token subject has no account", slog.Int("user_id", id))
			return types.User{}, apperr.Wrap(apperr.Unauthorized, apperr.MsgContactUs, err)
		}
		g.record(OutcomeError)
		return types.User{}, apperr.Wrap(apperr.Internal, apperr.MsgTryAgain, err)
	}
	if !user.Active {
		g.record(OutcomeInactive)
		g.logger.WarnContext(ctx, "inactive account presented a valid token", slog.Int("user_id", id))
		return types.User{}, apperr.New(apperr.Unauthorized, apperr.MsgContactUs)
	}

	g.record(OutcomeAuthorized)
	return user, nil
}

// RequireAdmin fails with PermissionDenied unless user is an admin.
func (g *Gate) RequireAdmin(user types.User) error {
	if IsAdmin(user) {
		return nil
	}
	g.record(OutcomeDenied)
	return apperr.New(apperr.PermissionDenied, apperr.MsgPermissionDenied)
}

// IsAdmin reports whether user may perform account-management operations.
func IsAdmin(user types.User) bool {
	return user.Admin
}

func (g *Gate) record(outcome Outcome) {
	if g.recorder != nil {
		g.recorder.RecordAuthDecision(string(outcome))
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errBadHeader
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", errBadHeader
	}
	return token, nil
}
