// Package api provides the HTTP API server for boards, workspaces and their
// memberships.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	apierrors "github.com/narvanalabs/boardroom/internal/api/errors"
	"github.com/narvanalabs/boardroom/internal/api/handlers"
	"github.com/narvanalabs/boardroom/internal/api/health"
	"github.com/narvanalabs/boardroom/internal/api/middleware"
	"github.com/narvanalabs/boardroom/internal/auth"
	"github.com/narvanalabs/boardroom/internal/boards"
	"github.com/narvanalabs/boardroom/internal/directory"
	"github.com/narvanalabs/boardroom/internal/events"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/reconcile"
	"github.com/narvanalabs/boardroom/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Deps are the services the router dispatches to.
type Deps struct {
	Auth      *auth.Service
	Reconcile *reconcile.Service
	Boards    *boards.Service
	Directory *directory.Directory
	Broker    *events.Broker
	Health    *health.Checker
}

// Server represents the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	deps       Deps
	config     *config.Config
	logger     *slog.Logger
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		deps:   deps,
		config: cfg,
		logger: logger,
	}
	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteErrorWithRequestID(w, apierrors.NewNotFoundError("No route for "+r.URL.Path), chimiddleware.GetReqID(r.Context()))
	})

	authHandler := handlers.NewAuthHandler(s.deps.Auth, s.logger)
	usersHandler := handlers.NewUsersHandler(s.deps.Directory, s.logger)
	boardHandler := handlers.NewBoardHandler(s.deps.Boards, s.logger)
	invitationsHandler := handlers.NewInvitationsHandler(s.deps.Reconcile, s.deps.Directory, s.logger)
	eventsHandler := handlers.NewEventsHandler(s.deps.Broker, s.logger)
	authMiddleware := middleware.NewAuthMiddleware(s.deps.Auth, s.logger)
	searchLimiter := middleware.NewRateLimiter(s.config.Membership.SearchRatePerMinute)

	if s.deps.Health != nil {
		r.Get("/health", s.deps.Health.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))
		r.Post("/auth/signup", authHandler.SignUp)
		r.Post("/auth/signin", authHandler.SignIn)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		// Long-lived, so kept out of the request timeout.
		r.Get("/events/ws", eventsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(60 * time.Second))

			r.Post("/auth/signout", authHandler.SignOut)
			r.Get("/me", authHandler.Me)

			r.With(searchLimiter.Handler).Get("/users/search", usersHandler.Search)

			r.Route("/workspaces", func(r chi.Router) {
				r.Post("/", boardHandler.CreateWorkspace)
				r.Get("/", boardHandler.ListWorkspaces)
				r.Route("/{containerID}", func(r chi.Router) {
					r.Get("/", boardHandler.GetWorkspace)
					r.Patch("/", boardHandler.UpdateWorkspace)
					r.Delete("/", boardHandler.DeleteWorkspace)
					r.Get("/boards", boardHandler.ListWorkspaceBoards)
					s.memberRoutes(r, invitationsHandler, models.ContainerWorkspace)
				})
			})

			r.Route("/boards", func(r chi.Router) {
				r.Post("/", boardHandler.CreateBoard)
				r.Get("/", boardHandler.ListBoards)
				r.Route("/{containerID}", func(r chi.Router) {
					r.Get("/", boardHandler.GetBoard)
					r.Patch("/", boardHandler.UpdateBoard)
					r.Delete("/", boardHandler.DeleteBoard)
					r.Get("/lists", boardHandler.ListLists)
					r.Post("/lists", boardHandler.CreateList)
					s.memberRoutes(r, invitationsHandler, models.ContainerBoard)
				})
			})

			r.Route("/lists/{listID}", func(r chi.Router) {
				r.Patch("/", boardHandler.RenameList)
				r.Delete("/", boardHandler.DeleteList)
				r.Get("/cards", boardHandler.ListCards)
				r.Post("/cards", boardHandler.CreateCard)
			})

			r.Route("/cards/{cardID}", func(r chi.Router) {
				r.Patch("/", boardHandler.UpdateCard)
				r.Delete("/", boardHandler.DeleteCard)
				r.Post("/move", boardHandler.MoveCard)
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Get("/", invitationsHandler.ListMine)
				r.Route("/{invitationID}", func(r chi.Router) {
					r.Post("/accept", invitationsHandler.Accept)
					r.Post("/decline", invitationsHandler.Decline)
					r.Delete("/", invitationsHandler.Cancel)
				})
			})
		})
	})

	s.router = r
}

// memberRoutes mounts the member and invitation routes shared by
// workspaces and boards.
func (s *Server) memberRoutes(r chi.Router, h *handlers.InvitationsHandler, t models.ContainerType) {
	r.Get("/members", h.ListMembers(t))
	r.Delete("/members/{userID}", h.RemoveMember(t))
	r.Post("/leave", h.Leave(t))
	r.Get("/invitations", h.ListForContainer(t))
	r.Post("/invitations", h.Invite(t))
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return nil
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
