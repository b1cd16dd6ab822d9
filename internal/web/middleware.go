package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/hpungsan/taskflow/internal/errors"
)

type ctxKey int

const userIDKey ctxKey = iota

// userIDFrom returns the authenticated user set by authenticated.
func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// requestLogger tags each request with an ID, logs it and records HTTP metrics.
func requestLogger(log zerolog.Logger, metrics *httpMetrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if reqID == "" || len(reqID) > 64 {
			reqID = ulid.Make().String()
		}
		w.Header().Set("X-Request-ID", reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.observe(route, rec.status, elapsed)

		evt := log.Info()
		if rec.status >= 500 {
			evt = log.Error()
		}
		evt.Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("http request")
	})
}

// authenticated requires a valid bearer token and stores its subject in the context.
func (h *Handlers) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			renderError(w, h.log, errors.NewUnauthorized("Not authenticated"))
			return
		}
		userID, err := h.auth.Tokens().Parse(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			renderError(w, h.log, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}

// owner wraps authenticated and also requires the token subject to match
// the {user_id} path segment.
func (h *Handlers) owner(next http.HandlerFunc) http.HandlerFunc {
	return h.authenticated(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("user_id") != userIDFrom(r.Context()) {
			renderError(w, h.log, errors.NewForbidden())
			return
		}
		next(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
