package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"textsubmission/app/controllers"
	"textsubmission/app/metrics"
	"textsubmission/app/middleware"
	"textsubmission/app/services"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
)

// SubmissionsPath is the collection path of the CRUD API.
const SubmissionsPath = "/api/TextSubmission"

// Options wires the dependencies the router needs.
type Options struct {
	Service *services.SubmissionService
	Logger  *slog.Logger
	// Metrics enables /metrics and per-route collectors when set.
	Metrics     *metrics.Metrics
	CorsOrigins []string
	// AccessLog enables the one-line-per-request access log at LogLevel.
	AccessLog bool
	LogLevel  slog.Level
}

// SetupRoutes defines the application's routes and returns the full handler
// chain: CORS, request ID, access log, panic recovery, then the router.
func SetupRoutes(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// Apply global middleware
	if opts.Metrics != nil {
		track := middleware.Metrics(opts.Metrics)
		router.Use(track)
		// mux skips Use middleware when no route matches
		router.NotFoundHandler = track(router.NotFoundHandler)
		router.MethodNotAllowedHandler = track(router.MethodNotAllowedHandler)
	}
	router.Use(middleware.ContentTypeJSON)

	submissionController := controllers.NewSubmissionController(opts.Service)

	// API routes
	submissionController.RegisterRoutes(router.PathPrefix(SubmissionsPath).Subrouter())

	// Operational endpoints
	router.HandleFunc("/healthz", submissionController.Health).Methods(http.MethodGet)
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	var handler http.Handler = router
	handler = middleware.Recoverer(handler)
	if opts.AccessLog {
		handler = middleware.Logger(opts.LogLevel, true)(handler)
	}
	handler = middleware.RequestID(logger)(handler)
	handler = cors.Handler(cors.Options{
		AllowedOrigins:   opts.CorsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Location", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(handler)

	return handler
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
