// Package api exposes the render HTTP surface: prepare and enqueue a render,
// read a line item's render status and download its signed report.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dharsanguruparan/PrintReady/internal/blobstore"
	"github.com/dharsanguruparan/PrintReady/internal/config"
	"github.com/dharsanguruparan/PrintReady/internal/logger"
	"github.com/dharsanguruparan/PrintReady/internal/prepare"
	"github.com/dharsanguruparan/PrintReady/internal/repository"
	"github.com/dharsanguruparan/PrintReady/internal/signing"
)

// Preparer is satisfied by *prepare.Preparer.
type Preparer interface {
	Prepare(ctx context.Context, req prepare.Request) (*prepare.Result, error)
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Preparer Preparer
	Docs     repository.Store
	Blobs    blobstore.Store
	Signer   *signing.Signer
	Logger   *logger.Logger
}

// Server exposes HTTP endpoints for render requests and their results.
type Server struct {
	cfg      *config.Config
	preparer Preparer
	docs     repository.Store
	blobs    blobstore.Store
	signer   *signing.Signer
	log      *logger.Logger
	now      func() time.Time
	server   *http.Server
	once     sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, deps Deps) *Server {
	return &Server{
		cfg:      cfg,
		preparer: deps.Preparer,
		docs:     deps.Docs,
		blobs:    deps.Blobs,
		signer:   deps.Signer,
		log:      deps.Logger.WithComponent("api"),
		now:      time.Now,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	r.Use(cors)

	r.Get("/healthz", s.handleHealth)
	r.Post("/renders", s.handlePrepare)
	r.Get("/renders/{orderId}/{lineItemId}", s.handleStatus)
	r.Get("/renders/{orderId}/{lineItemId}/report", s.handleReport)
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.Info("api listening", slog.String("address", s.cfg.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

const requestIDHeader = "X-Request-ID"

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.ContextWithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.FromContext(r.Context()).Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.FromContext(r.Context()).Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
				respondErr(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,"+requestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
