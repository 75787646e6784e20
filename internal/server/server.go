// Package server is the composition root: it opens storage, builds the
// services and handlers, mounts the routes and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	config.Config → repository.Store (sqlite or postgres)
//	             → AuthService, CategoryService, TodoService
//	             → AuthHandler, CategoryHandler, TodoHandler
//	             → chi routes
//
// Handlers never touch storage, and services never touch HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/auth"
	"github.com/sakif/todo-tracker/internal/config"
	"github.com/sakif/todo-tracker/internal/handler"
	"github.com/sakif/todo-tracker/internal/middleware"
	"github.com/sakif/todo-tracker/internal/repository"
	"github.com/sakif/todo-tracker/internal/repository/postgres"
	"github.com/sakif/todo-tracker/internal/repository/sqlite"
	"github.com/sakif/todo-tracker/internal/service"
)

// shutdownTimeout is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Server owns the store and the Redis client and closes both on shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Store
	redis  *redis.Client // nil when rate limiting is off
}

// Option adjusts a Server before its routes are built.
type Option func(*options)

type options struct {
	passwords *auth.PasswordService
}

// WithPasswordService replaces the default bcrypt cost. Tests use it with
// auth.NewPasswordServiceForTest.
func WithPasswordService(ps *auth.PasswordService) Option {
	return func(o *options) { o.passwords = ps }
}

// New opens storage (running migrations), connects to Redis when
// configured and wires every route.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	o := options{passwords: auth.NewPasswordService()}
	for _, opt := range opts {
		opt(&o)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if cfg.RedisURL != "" {
		if s.redis, err = openRedis(ctx, cfg.RedisURL, logger); err != nil {
			store.Close()
			return nil, err
		}
	} else {
		logger.Info("REDIS_URL not set, rate limiting disabled")
	}

	if err := s.setupRoutes(o); err != nil {
		s.close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.Driver() {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL, postgres.PoolOptions{
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil
	default:
		db, err := sqlite.New(cfg.SQLitePath())
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return db, nil
	}
}

// openRedis parses the URL and pings once. An unreachable Redis is only
// logged: the limiter lets requests through while Redis is down.
func openRedis(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, rate limiter will fail open",
			slog.String("addr", opts.Addr),
			slog.String("error", err.Error()),
		)
	}
	return rdb, nil
}

// setupRoutes mounts:
//
//	GET    /health
//	POST   /auth/register         (rate limited)
//	POST   /auth/login            (rate limited)
//	GET    /auth/me               (auth)
//	GET    /categories            (auth)
//	POST   /categories            (auth)
//	GET    /categories/{id}       (auth)
//	PATCH  /categories/{id}       (auth)
//	DELETE /categories/{id}       (auth)
//	GET    /todos                 (auth)
//	POST   /todos                 (auth)
//	GET    /todos/{id}            (auth)
//	PATCH  /todos/{id}            (auth)
//	DELETE /todos/{id}            (auth)
//
// Middleware order: RequestID, RealIP, Logger, Recoverer. Logger sits
// outside Recoverer so a recovered panic is logged as a 500.
func (s *Server) setupRoutes(o options) error {
	tokens, err := auth.NewTokenService(s.config.SecretKey, s.config.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	authService := service.NewAuthService(s.store, tokens, o.passwords, s.logger)
	categoryService := service.NewCategoryService(s.store, s.logger)
	todoService := service.NewTodoService(s.store, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryService, s.logger)
	todoHandler := handler.NewTodoHandler(todoService, s.logger)

	requireAuth := auth.RequireAuth(authService)
	rateLimit := middleware.RateLimit(s.redis, s.config.RateLimitMax, s.config.RateLimitWindow,
		middleware.KeyByIPAndPath, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// Set before the subrouters are mounted so they inherit both.
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperror.Write(w, &apperror.AppError{Err: apperror.ErrNotFound, Code: apperror.CodeNotFound, Message: "Not Found"})
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apperror.Write(w, apperror.MethodNotAllowed())
	})

	s.router.Get("/health", handler.HandleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.With(rateLimit).Post("/register", authHandler.HandleRegister)
		r.With(rateLimit).Post("/login", authHandler.HandleLogin)
		r.With(requireAuth).Get("/me", authHandler.HandleMe)
	})

	s.router.Route("/categories", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", categoryHandler.HandleList)
		r.Post("/", categoryHandler.HandleCreate)
		r.Get("/{id}", categoryHandler.HandleGet)
		r.Patch("/{id}", categoryHandler.HandleUpdate)
		r.Delete("/{id}", categoryHandler.HandleDelete)
	})

	s.router.Route("/todos", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", todoHandler.HandleList)
		r.Post("/", todoHandler.HandleCreate)
		r.Get("/{id}", todoHandler.HandleGet)
		r.Patch("/{id}", todoHandler.HandleUpdate)
		r.Delete("/{id}", todoHandler.HandleDelete)
	})
	return nil
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to shutdownTimeout and closes storage and Redis.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("driver", s.config.Driver()),
			slog.Bool("rateLimit", s.redis != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

// Close releases storage and Redis without starting the server.
func (s *Server) Close() error {
	return s.close()
}

func (s *Server) close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}
