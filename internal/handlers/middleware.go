package handlers

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ezasdf/users-api/types"
)

// AuthenticatedFunc is a handler that runs only for an authorized account,
// which it receives as an argument.
type AuthenticatedFunc func(w http.ResponseWriter, r *http.Request, user types.User)

// authenticated runs the request through the gate before calling fn.
func authenticated(gate Authorizer, logger *slog.Logger, fn AuthenticatedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := gate.Authorize(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		fn(w, r, user)
	}
}

// adminOnly narrows fn to admin accounts.
func adminOnly(gate Authorizer, logger *slog.Logger, fn AuthenticatedFunc) http.HandlerFunc {
	return authenticated(gate, logger, func(w http.ResponseWriter, r *http.Request, user types.User) {
		if err := gate.RequireAdmin(user); err != nil {
			writeError(w, r, logger, err)
			return
		}
		fn(w, r, user)
	})
}

// RequestLogger logs one structured line per request. The level follows the
// response status.
func RequestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
				slog.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}
