package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"textsubmission/app/apperr"
	"textsubmission/app/middleware"
	"textsubmission/app/services"

	"github.com/gorilla/mux"
)

// ShowRouteName names the by-id read route used for the Location header.
const ShowRouteName = "submission.show"

// bodyHeadroom is allowed on top of the escaped text for the JSON envelope.
const bodyHeadroom = 4 << 10

// SubmissionController handles HTTP requests for text submissions
type SubmissionController struct {
	service *services.SubmissionService
	router  *mux.Router
}

// submissionRequest is the body accepted by Create and Edit
type submissionRequest struct {
	Text *string `json:"text"`
}

// NewSubmissionController creates a new SubmissionController
func NewSubmissionController(service *services.SubmissionService) *SubmissionController {
	return &SubmissionController{service: service}
}

// RegisterRoutes mounts the CRUD endpoints on r, which should already be
// scoped to the collection path.
func (sc *SubmissionController) RegisterRoutes(r *mux.Router) {
	sc.router = r
	r.HandleFunc("", sc.Index).Methods(http.MethodGet)
	r.HandleFunc("", sc.Create).Methods(http.MethodPost)
	r.HandleFunc("/{id:[0-9]+}", sc.Show).Methods(http.MethodGet).Name(ShowRouteName)
	r.HandleFunc("/{id:[0-9]+}", sc.Edit).Methods(http.MethodPut)
	r.HandleFunc("/{id:[0-9]+}", sc.Delete).Methods(http.MethodDelete)
}

// Index handles listing all submissions, newest first
func (sc *SubmissionController) Index(w http.ResponseWriter, r *http.Request) {
	submissions, err := sc.service.ListSubmissions(r.Context())
	if err != nil {
		sc.sendError(w, r, err)
		return
	}
	sc.sendJSON(w, http.StatusOK, submissions)
}

// Show handles displaying a single submission
func (sc *SubmissionController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		sc.sendError(w, r, err)
		return
	}

	submission, err := sc.service.GetSubmission(r.Context(), id)
	if err != nil {
		sc.sendError(w, r, err)
		return
	}
	sc.sendJSON(w, http.StatusOK, submission)
}

// Create handles creating a new submission
func (sc *SubmissionController) Create(w http.ResponseWriter, r *http.Request) {
	text, err := sc.decodeText(w, r)
	if err != nil {
		sc.sendError(w, r, err)
		return
	}

	submission, err := sc.service.CreateSubmission(r.Context(), text)
	if err != nil {
		sc.sendError(w, r, err)
		return
	}

	middleware.LoggerFromContext(r.Context()).Info("submission created", "id", submission.ID)
	if location := sc.location(submission.ID); location != "" {
		w.Header().Set("Location", location)
	}
	sc.sendJSON(w, http.StatusCreated, submission)
}

// Edit handles replacing the text of an existing submission
func (sc *SubmissionController) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		sc.sendError(w, r, err)
		return
	}

	text, err := sc.decodeText(w, r)
	if err != nil {
		sc.sendError(w, r, err)
		return
	}

	submission, err := sc.service.UpdateSubmission(r.Context(), id, text)
	if err != nil {
		sc.sendError(w, r, err)
		return
	}

	middleware.LoggerFromContext(r.Context()).Info("submission updated", "id", id)
	sc.sendJSON(w, http.StatusOK, submission)
}

// Delete handles deleting a submission
func (sc *SubmissionController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		sc.sendError(w, r, err)
		return
	}

	if err := sc.service.DeleteSubmission(r.Context(), id); err != nil {
		sc.sendError(w, r, err)
		return
	}

	middleware.LoggerFromContext(r.Context()).Info("submission deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Health reports whether the store is reachable
func (sc *SubmissionController) Health(w http.ResponseWriter, r *http.Request) {
	if err := sc.service.Ping(r.Context()); err != nil {
		middleware.LoggerFromContext(r.Context()).Error("health check failed", "error", err)
		sc.sendJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	sc.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (sc *SubmissionController) location(id int) string {
	if sc.router == nil {
		return ""
	}
	route := sc.router.Get(ShowRouteName)
	if route == nil {
		return ""
	}
	u, err := route.URL("id", strconv.Itoa(id))
	if err != nil {
		return ""
	}
	return u.String()
}

func parseID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return 0, apperr.Validation("Invalid submission ID")
	}
	return id, nil
}

// maxBodyBytes bounds a request body by the longest text the service accepts,
// each rune escaped as \uXXXX in the worst case.
func (sc *SubmissionController) maxBodyBytes() int64 {
	return int64(sc.service.Rule().Max)*6 + bodyHeadroom
}

func (sc *SubmissionController) decodeText(w http.ResponseWriter, r *http.Request) (string, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, sc.maxBodyBytes()))

	var req submissionRequest
	if err := dec.Decode(&req); err != nil {
		return "", bodyError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return "", bodyError(err)
		}
		return "", apperr.Validation("Invalid JSON body")
	}
	if req.Text == nil {
		return "", apperr.Validation("Text is required.")
	}
	return *req.Text, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Wrap(apperr.KindValidation, "Request body too large", err)
	}
	return apperr.Wrap(apperr.KindValidation, "Invalid JSON body", err)
}

// Helper methods for consistent response handling

func (sc *SubmissionController) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (sc *SubmissionController) sendError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	logger := middleware.LoggerFromContext(r.Context())
	attrs := []any{"method", r.Method, "path", r.URL.Path, "kind", kind.String()}

	if kind == apperr.KindInternal {
		logger.Error("request failed", append(attrs, "error", err)...)
	} else {
		logger.Warn("request rejected", append(attrs, slog.String("reason", err.Error()))...)
	}

	sc.sendJSON(w, kind.HTTPStatus(), map[string]string{"error": apperr.PublicMessage(err)})
}
