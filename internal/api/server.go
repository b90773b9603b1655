package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"telecast/internal/auth"
	"telecast/internal/config"
	"telecast/internal/dispatch"
	"telecast/internal/model"
	"telecast/internal/store"
	"telecast/pkg/logx"
)

// AuthService is the slice of the auth package the handlers need.
type AuthService interface {
	TokenParser
	Login(ctx context.Context, username, password string) (*auth.Challenge, error)
	VerifyCode(ctx context.Context, userID, code string) (*auth.TokenPair, *model.User, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
}

// Dispatcher runs one broadcast. Satisfied by *dispatch.Service.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request, operatorID string) (*model.Task, *dispatch.Outcome, error)
}

// DirectorySyncer triggers an immediate directory import. Nil when the
// sheets integration is disabled.
type DirectorySyncer interface {
	Sync(ctx context.Context) error
}

type Server struct {
	cfg     config.HTTPConfig
	uploads config.UploadsConfig

	store      *store.Store
	auth       AuthService
	dispatcher Dispatcher
	syncer     DirectorySyncer
	log        logx.Logger

	srv *http.Server
}

func NewServer(cfg config.HTTPConfig, uploads config.UploadsConfig, st *store.Store, authSvc AuthService, dispatcher Dispatcher, syncer DirectorySyncer, log logx.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		uploads:    uploads,
		store:      st,
		auth:       authSvc,
		dispatcher: dispatcher,
		syncer:     syncer,
		log:        log,
	}
	s.srv = &http.Server{
		Addr:         cfg.AddrOrDefault(),
		Handler:      s.Router(),
		ReadTimeout:  parseOr(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout: parseOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  parseOr(cfg.IdleTimeout, 120*time.Second),
	}
	return s
}

// Router builds the full route tree. Exposed for handler tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/verify-code", s.handleVerifyCode)
	r.Post("/api/auth/refresh-token", s.handleRefresh)

	r.Handle("/uploads/*", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(s.uploads.DirOrDefault()))))

	r.Group(func(r chi.Router) {
		r.Use(requireAuth(s.auth))

		r.Route("/api/channels", func(r chi.Router) {
			r.Get("/", s.handleListChannels)
			r.Post("/", s.handleCreateChannel)
			r.Put("/{id}", s.handleUpdateChannel)
			r.Delete("/{id}", s.handleDeleteChannel)
		})

		r.Route("/api/keys", func(r chi.Router) {
			r.Get("/", s.handleListKeys)
			r.Post("/", s.handleCreateKey)
			r.Put("/{id}", s.handleUpdateKey)
			r.Delete("/{id}", s.handleDeleteKey)
		})

		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Delete("/{id}", s.handleDeleteTask)
		})

		r.Post("/api/broadcasts", s.handleBroadcast)
		r.Post("/api/images", s.handleUploadImage)

		r.Route("/api/users", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)
			r.Put("/{id}", s.handleUpdateUser)
			r.Delete("/{id}", s.handleDeleteUser)
		})

		r.With(requireAdmin).Post("/api/directory/sync", s.handleDirectorySync)
	})

	return r
}

// Start serves until Shutdown. A closed-server error is not a failure.
func (s *Server) Start() error {
	s.log.Info("http listening", logx.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			logx.String("method", r.Method),
			logx.String("path", r.URL.Path),
			logx.Int("status", ww.Status()),
			logx.Duration("took", time.Since(start)))
	})
}

func parseOr(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
