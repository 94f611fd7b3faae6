// Package server exposes the panel controller over HTTP for a browser UI.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/courselens/internal/config"
	"github.com/xkilldash9x/courselens/internal/panel"
	"github.com/xkilldash9x/courselens/internal/settings"
)

// Panel is the controller surface the server drives.
type Panel interface {
	State() panel.State
	Subscribe() (<-chan panel.State, func())
	Summarize(ctx context.Context) error
	FetchTranscript(ctx context.Context) error
	Reset() error
	Cancel() bool
	ToggleSettings()
	SaveSettings(ctx context.Context, apiKey, model string) (settings.Settings, error)
	CheckModels(ctx context.Context, apiKey string) ([]string, error)
	Copy() error
	Export() (string, error)
}

// Server serves the panel page, its JSON API and a websocket state stream.
type Server struct {
	cfg      config.PanelConfig
	panel    Panel
	logger   *zap.Logger
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
	router   chi.Router

	// done is closed on shutdown so open event streams end.
	done chan struct{}
}

// New builds the server and its routes.
func New(cfg config.PanelConfig, p Panel, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		panel:   p,
		logger:  logger.Named("server"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		done: make(chan struct{}),
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", s.handlePage)

	r.Route("/api", func(r chi.Router) {
		// The event stream is long lived and stays outside the request timeout.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			timeout := s.cfg.RequestTimeout
			if timeout <= 0 {
				timeout = 5 * time.Minute
			}
			r.Use(middleware.Timeout(timeout))

			r.Get("/state", s.handleState)
			r.Get("/settings", s.handleGetSettings)
			r.Get("/export", s.handleExport)
			r.Post("/cancel", s.handleCancel)

			r.Group(func(r chi.Router) {
				r.Use(s.rateLimit)
				r.Post("/summarize", s.handleAction(s.panel.Summarize))
				r.Post("/transcript", s.handleAction(s.panel.FetchTranscript))
				r.Post("/reset", s.handleReset)
				r.Put("/settings", s.handlePutSettings)
				r.Post("/settings/toggle", s.handleToggleSettings)
				r.Get("/models", s.handleModels)
				r.Post("/copy", s.handleCopy)
			})
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Panel server listening.", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	close(s.done)
	s.panel.Cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("Panel server stopped.")
	return nil
}
