package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"textsubmission/app/apperr"
	"textsubmission/app/metrics"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey string

const loggerKey ctxKey = "logger"

// LoggerFromContext returns the request-scoped logger, or the default logger
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger stores logger in ctx
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// RequestID tags every request with an ID, taken from the incoming header
// when present, and stores a logger carrying it in the request context
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := context.WithValue(r.Context(), chimw.RequestIDKey, id)
			ctx = WithLogger(ctx, logger.With("request_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Logger logs information about each request
func Logger(level slog.Level, concise bool) func(http.Handler) http.Handler {
	logger := httplog.NewLogger("textsubmission", httplog.Options{
		JSON:             true,
		LogLevel:         level,
		Concise:          concise,
		RequestHeaders:   false,
		MessageFieldName: "msg",
	})
	return httplog.RequestLogger(logger)
}

// Recoverer recovers from panics and logs the error
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				LoggerFromContext(r.Context()).Error(
					"panic while handling request",
					"panic", err,
					"method", r.Method,
					"path", r.URL.Path,
				)
				if isAPI(r) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{"error": apperr.InternalMessage})
					return
				}
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ContentTypeJSON sets the Content-Type header to application/json for API routes
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only set JSON content type for API routes
		if isAPI(r) {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// UnmatchedRoute labels requests served by the router's 404 and 405 handlers.
const UnmatchedRoute = "unmatched"

// Metrics records request counts and latency per matched route template.
// It must run inside the router so the route is known. Requests that match
// no route are labelled UnmatchedRoute.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := m.Start()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				done(r.Method, routeTemplate(r), statusOf(ww))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return UnmatchedRoute
}

func statusOf(ww chimw.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api")
}
