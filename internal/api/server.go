// Package api serves the command surface as a loopback JSON API and
// provides the typed client the CLI talks to it with.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

const (
	defaultRateLimit = 20
	shutdownTimeout  = 5 * time.Second
	maxBodyBytes     = 1 << 20
)

// Controller is the command surface the API exposes.
type Controller interface {
	UpdateRules(ctx context.Context, rules domain.RuleSet) (string, error)
	ScreenTime() uint32
	Status() domain.MonitoringState
	StartMonitoring(ctx context.Context) (string, error)
	StopMonitoring(ctx context.Context) (string, error)
	BlockSite(ctx context.Context, site string) (string, error)
	UnblockSite(ctx context.Context, site string) (string, error)
	KillProcess(ctx context.Context, name string) (string, error)
	ListProcesses(ctx context.Context) ([]string, error)
	CutInternet(ctx context.Context) (string, error)
	RestoreInternet(ctx context.Context) (string, error)
	Activity(ctx context.Context, profileID string, limit int) ([]domain.ActivityEvent, error)
}

// ServerConfig configures the control API.
type ServerConfig struct {
	Addr      string
	RateLimit int // PIN-guarded requests per minute per IP
	Version   string
}

// Server is the control API.
type Server struct {
	config    ServerConfig
	ctrl      Controller
	presets   *policy.Registry
	pins      *PINGuard
	metrics   http.Handler
	logger    *zap.Logger
	startedAt time.Time
}

// NewServer creates the API. secrets and metrics may be nil; without a
// secret store the mutating routes are open.
func NewServer(cfg ServerConfig, ctrl Controller, presets *policy.Registry, secrets domain.SecretStore, metrics http.Handler, logger *zap.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	return &Server{
		config:    cfg,
		ctrl:      ctrl,
		presets:   presets,
		pins:      NewPINGuard(secrets),
		metrics:   metrics,
		logger:    logger.Named("api"),
		startedAt: time.Now(),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/screen-time", s.handleScreenTime)
		r.Get("/processes", s.handleListProcesses)
		r.Get("/activity", s.handleActivity)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit())
			r.Use(s.requirePIN)

			r.Put("/rules", s.handleUpdateRules)
			r.Post("/monitoring/start", s.command(s.ctrl.StartMonitoring))
			r.Post("/monitoring/stop", s.command(s.ctrl.StopMonitoring))
			r.Post("/sites/{domain}", s.handleBlockSite)
			r.Delete("/sites/{domain}", s.handleUnblockSite)
			r.Post("/processes/{name}/kill", s.handleKillProcess)
			r.Post("/network/cut", s.command(s.ctrl.CutInternet))
			r.Post("/network/restore", s.command(s.ctrl.RestoreInternet))
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("control API listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) rateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(
		s.config.RateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, Response{Message: "too many requests, try again later"})
		}),
	)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
