package web

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hpungsan/taskflow/internal/auth"
	"github.com/hpungsan/taskflow/internal/chat"
	"github.com/hpungsan/taskflow/internal/config"
)

// ChatHandler answers one chat message.
type ChatHandler interface {
	Handle(ctx context.Context, req chat.Request) (*chat.Response, error)
}

// Options holds the HTTP server's dependencies.
type Options struct {
	DB       *sql.DB
	Config   *config.Config
	Auth     *auth.Service
	Chat     ChatHandler
	Registry *prometheus.Registry
	Logger   zerolog.Logger
	Version  string
}

// NewHandler builds the routed and wrapped HTTP handler.
func NewHandler(opts Options) http.Handler {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	h := &Handlers{
		db:      opts.DB,
		cfg:     opts.Config,
		auth:    opts.Auth,
		chat:    opts.Chat,
		log:     opts.Logger,
		version: opts.Version,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /auth/register", h.HandleRegister)
	mux.HandleFunc("POST /auth/login", h.HandleLogin)
	mux.HandleFunc("GET /auth/me", h.authenticated(h.HandleMe))

	mux.HandleFunc("GET /api/{user_id}/tasks", h.owner(h.HandleListTasks))
	mux.HandleFunc("POST /api/{user_id}/tasks", h.owner(h.HandleCreateTask))
	mux.HandleFunc("PATCH /api/{user_id}/tasks/{task_id}", h.owner(h.HandleUpdateTask))
	mux.HandleFunc("DELETE /api/{user_id}/tasks/{task_id}", h.owner(h.HandleDeleteTask))
	mux.HandleFunc("POST /api/{user_id}/chat", h.owner(h.HandleChat))

	metrics := newHTTPMetrics(reg)
	return requestLogger(opts.Logger, metrics, securityHeaders(mux))
}

// NewServer creates the HTTP server for the task API.
func NewServer(opts Options) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Config.Bind, opts.Config.Port),
		Handler:           NewHandler(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log zerolog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Str("addr", srv.Addr).Msg("taskflow api listening")

	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
