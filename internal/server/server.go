// Package server is the composition root: it wires the repository, services,
// and handlers together and owns the HTTP listener's lifecycle.
//
// Public vs. protected routes are explicit in setupRoutes — a route is
// protected because it sits inside the RequireAuth group, not because of any
// metadata on its handler. The two public routes (register, login) are the
// only ones outside the group.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/account-service/internal/auth"
	"github.com/sakif/account-service/internal/config"
	"github.com/sakif/account-service/internal/handler"
	"github.com/sakif/account-service/internal/middleware"
	sqliteRepo "github.com/sakif/account-service/internal/repository/sqlite"
	"github.com/sakif/account-service/internal/service"
	"github.com/sakif/account-service/internal/storage"
)

// Server holds the router and the resources it owns. The database connection
// is closed during graceful shutdown so the WAL is flushed and the file lock
// released.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain:
//
//	sqlite.DB → UserService ← TokenService, PasswordService, DiskStore
//	                ↓
//	           UserHandler → routes
//
// Each layer only receives what it needs: the service gets the repository
// interface (not the concrete sqlite.DB), the handler gets the service.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenServiceWithTTL(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	images, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating image store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes(tokens, images)

	return s, nil
}

// setupRoutes configures middleware and the /user route tree.
func (s *Server) setupRoutes(tokens *auth.TokenService, images storage.ImageStore) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	users := service.NewUserService(s.db, tokens, auth.NewPasswordService(), images, s.logger)
	userHandler := handler.NewUserHandler(users, s.config.TokenTTL, s.logger)

	s.router.Route("/user", func(r chi.Router) {
		// Public routes — the only two calls allowed without a token.
		r.Post("/register", userHandler.HandleRegister)
		r.Post("/login", userHandler.HandleLogin)

		// Everything else is protected by default.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/profile", userHandler.HandleGetProfile)
			r.Post("/profile", userHandler.HandleCreateProfile)
			r.Put("/profile", userHandler.HandleUpdateProfile)
			r.Post("/interest", userHandler.HandleAddInterest)
			r.Delete("/interest/{interest}", userHandler.HandleRemoveInterest)
		})
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30 seconds
// to finish, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("uploads", s.config.UploadDir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
