package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ezasdf/users-api/config"
	"github.com/ezasdf/users-api/internal/auth"
	"github.com/ezasdf/users-api/internal/db"
	"github.com/ezasdf/users-api/internal/handlers"
	"github.com/ezasdf/users-api/internal/metrics"
	"github.com/ezasdf/users-api/internal/mq"
	"github.com/ezasdf/users-api/internal/services"
	"github.com/ezasdf/users-api/internal/store"
)

const requestTimeout = 60 * time.Second

// Deps are the collaborators the router needs.
type Deps struct {
	Accounts handlers.AccountService
	Gate     handlers.Authorizer
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	logger     *slog.Logger
}

// New opens the database and optional message queue and wires the full
// object graph.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	switch {
	case errors.Is(err, mq.ErrDisabled):
		logger.Info("account events disabled")
	case err != nil:
		_ = dbConn.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(dbConn, dbLabel(cfg.Database)),
	)
	collector := metrics.NewCollector(reg)

	accounts, gate, err := NewAccounts(cfg, store.New(dbConn), queue, collector, logger)
	if err != nil {
		closeQuietly(dbConn, queue)
		return nil, err
	}

	router := NewRouter(Deps{
		Accounts: accounts,
		Gate:     gate,
		Gatherer: reg,
		Logger:   logger,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         queue,
		logger:     logger,
	}, nil
}

// NewAccounts builds the account service and authorization gate over st.
// queue may be nil, in which case no events are published.
func NewAccounts(cfg config.Config, st services.Store, queue *mq.MQ, collector *metrics.Collector, logger *slog.Logger) (*services.UserService, *auth.Gate, error) {
	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptRounds)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := auth.NewTokenManager([]byte(cfg.SecretKey), cfg.Auth.TokenTTL())
	if err != nil {
		return nil, nil, err
	}

	opts := []services.Option{services.WithLogger(logger)}
	var recorder auth.DecisionRecorder
	if collector != nil {
		opts = append(opts, services.WithMetrics(collector))
		recorder = collector
	}
	if queue != nil {
		opts = append(opts, services.WithEvents(mq.NewEvents(queue, cfg.MQ.Channel, logger)))
	}

	accounts := services.NewUserService(st, hasher, tokens, opts...)
	gate := auth.NewGate(tokens, st.Users(), auth.SystemClock{}, recorder, logger)
	return accounts, gate, nil
}

// NewRouter mounts every route on a chi router with the standard
// middleware stack.
func NewRouter(deps Deps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
	)

	router.Get("/healthz", handlers.Healthz)
	if deps.Gatherer != nil {
		router.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, deps.Accounts, deps.Gate, logger)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UsersRouter(r, deps.Accounts, deps.Gate, logger)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the message queue and
// the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	closeQuietly(s.db, s.mq)
	return err
}

func dbLabel(cfg config.DatabaseConfig) string {
	if cfg.DBName != "" {
		return cfg.DBName
	}
	return "users"
}

func closeQuietly(dbConn *sql.DB, queue *mq.MQ) {
	if queue != nil {
		_ = queue.Close()
	}
	if dbConn != nil {
		_ = dbConn.Close()
	}
}
