package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ezasdf/users-api/internal/services"
	"github.com/ezasdf/users-api/types"
)

// Authorizer resolves the Authorization header to an active account.
type Authorizer interface {
	Authorize(ctx context.Context, authorization string) (types.User, error)
	RequireAdmin(user types.User) error
}

// AccountService is the subset of services.UserService the handlers use.
type AccountService interface {
	Signup(ctx context.Context, in services.SignupInput) (types.User, string, error)
	Signin(ctx context.Context, in services.SigninInput) (types.User, string, error)
	CreateUser(ctx context.Context, actor types.User, in services.SignupInput) (types.User, error)
	GetByID(ctx context.Context, id int) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
}

// AuthHandler serves signup, signin, signout and profile.
type AuthHandler struct {
	accounts AccountService
	gate     Authorizer
	logger   *slog.Logger
}

func NewAuthHandler(accounts AccountService, gate Authorizer, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{accounts: accounts, gate: gate, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, accounts AccountService, gate Authorizer, logger *slog.Logger) {
	h := NewAuthHandler(accounts, gate, logger)

	r.Post("/signup", h.Signup)
	r.Post("/signin", h.Signin)
	r.Get("/signout", authenticated(gate, h.logger, h.Signout))
	r.Get("/profile", authenticated(gate, h.logger, h.Profile))
}

type tokenData struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, token, err := h.accounts.Signup(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, fmt.Sprintf("%s signed up.", user.Email), tokenData{Token: token})
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req services.SigninInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, token, err := h.accounts.Signin(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, fmt.Sprintf("%s signed in.", user.Email), tokenData{Token: token})
}

// Signout only acknowledges the token; nothing is revoked server side.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request, user types.User) {
	writeSuccess(w, http.StatusOK, fmt.Sprintf("%s signed out.", user.Email), nil)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request, user types.User) {
	writeSuccess(w, http.StatusOK, fmt.Sprintf("Fetched %s's profile data.", user.Email), user)
}
