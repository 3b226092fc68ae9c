package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ezasdf/users-api/internal/apperr"
	"github.com/ezasdf/users-api/internal/services"
	"github.com/ezasdf/users-api/types"
)

// UsersHandler serves the account listing and admin account creation.
type UsersHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

func NewUsersHandler(accounts AccountService, logger *slog.Logger) *UsersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsersHandler{accounts: accounts, logger: logger}
}

// UsersRouter registers account routes on the given router.
func UsersRouter(r chi.Router, accounts AccountService, gate Authorizer, logger *slog.Logger) {
	h := NewUsersHandler(accounts, logger)

	r.Get("/ping", h.Ping)
	r.Get("/", h.List)
	r.Post("/", adminOnly(gate, h.logger, h.Create))
	r.Get("/{id}", h.Get)
}

type userSummary struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type userDetail struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type usersData struct {
	Users []userSummary `json:"users"`
}

func (h *UsersHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "pong!", nil)
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	data := usersData{Users: make([]userSummary, 0, len(users))}
	for _, u := range users {
		data.Users = append(data.Users, userSummary{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			CreatedAt: u.CreatedAt,
		})
	}
	writeSuccess(w, http.StatusOK, "Users fetched.", data)
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request, actor types.User) {
	var req services.SignupInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.accounts.CreateUser(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, fmt.Sprintf("%s was added!", user.Email), nil)
}

// Get answers 404 for ids that are not positive integers, the same as for
// unknown accounts.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		writeError(w, r, h.logger, apperr.New(apperr.NotFound, apperr.MsgUserNotFound))
		return
	}

	user, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, fmt.Sprintf("User %d fetched.", user.ID), userDetail{
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
