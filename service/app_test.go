package service

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"textsubmission/app/config"
	"textsubmission/app/repositories/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestServeGracefulShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := config.Default()
	cfg.ShutdownTimeout = "2s"
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	baseURL := "http://" + listener.Addr().String()

	handler := NewHandler(cfg, mock.NewSubmissionRepository(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, listener, cfg, handler, logger)
	}()

	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(baseURL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	client.CloseIdleConnections()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = client.Get(baseURL + "/healthz")
	assert.Error(t, err)
}

func TestServeBadShutdownTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.ShutdownTimeout = "soon"

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = Serve(context.Background(), listener, cfg, http.NotFoundHandler(), slog.Default())
	assert.Error(t, err)
}
