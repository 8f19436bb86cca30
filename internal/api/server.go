// Package api provides the HTTP interface to the support assistant:
// conversation-scoped chat, voice and product variants, conversation
// management, and health probes.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/koopa0/helpdesk/internal/agent"
	"github.com/koopa0/helpdesk/internal/session"
)

// Server timeouts. Kept conservative; generation calls dominate latency.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

// Responder is the slice of the agent the HTTP layer needs.
type Responder interface {
	Generate(ctx context.Context, req agent.Request) *agent.Result
	GenerateVoice(ctx context.Context, req agent.Request) *agent.Result
	GenerateForProduct(ctx context.Context, req agent.Request, product string) *agent.Result
}

// ServerConfig contains everything needed to build a Server.
type ServerConfig struct {
	Addr      string
	Agent     Responder
	Sessions  *session.MemoryStore
	Logger    *slog.Logger
	RateLimit rate.Limit // requests per second across all clients; 0 disables
	RateBurst int
}

// Server is the assistant's HTTP server.
type Server struct {
	addr    string
	mux     *http.ServeMux
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewServer builds a server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Agent == nil {
		return nil, errors.New("agent is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	mux := http.NewServeMux()

	chat := newChatHandler(cfg.Agent, cfg.Sessions, cfg.Logger)
	chat.registerRoutes(mux)

	health := newHealthHandler(cfg.Sessions)
	health.registerRoutes(mux)

	s := &Server{
		addr:   cfg.Addr,
		mux:    mux,
		logger: cfg.Logger,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int(cfg.RateLimit)
		}
		s.limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}
	return s, nil
}

// ServeHTTP implements http.Handler with the middleware stack applied.
// Order: recovery catches panics from every layer below, logging tracks all
// requests, rate limiting rejects before any handler work happens.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var handler http.Handler = s.mux
	if s.limiter != nil {
		handler = RateLimitMiddleware(s.limiter)(handler)
	}
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler.ServeHTTP(w, r)
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
