package routes

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"textsubmission/app/database"
	"textsubmission/app/metrics"
	"textsubmission/app/models"
	"textsubmission/app/repositories"
	"textsubmission/app/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testOrigins = []string{"http://localhost:4200"}

func setupTestDB(t *testing.T) *badger.DB {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// testStores returns a fresh repository per backing store.
func testStores(t *testing.T) map[string]func(t *testing.T) repositories.SubmissionRepository {
	return map[string]func(t *testing.T) repositories.SubmissionRepository{
		"badger": func(t *testing.T) repositories.SubmissionRepository {
			return repositories.NewBadgerSubmissionRepository(setupTestDB(t))
		},
		"sqlite": func(t *testing.T) repositories.SubmissionRepository {
			repo, err := database.OpenMemory(uuid.NewString())
			require.NoError(t, err)
			t.Cleanup(func() { repo.Close() })
			return repo
		},
	}
}

func setupTestRouter(t *testing.T, repo repositories.SubmissionRepository) (http.Handler, *services.SubmissionService, *metrics.Metrics) {
	t.Helper()
	service := services.NewSubmissionService(repo, models.DefaultServerRule)
	m := metrics.New()
	handler := SetupRoutes(Options{
		Service:     service,
		Logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Metrics:     m,
		CorsOrigins: testOrigins,
	})
	return handler, service, m
}

func doRequest(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}
