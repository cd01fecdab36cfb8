package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MikePodsytnik/cinemabot/internal/metrics"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestServer_Health(t *testing.T) {
	s := NewServer(":0", stubPinger{}, metrics.New(), zap.NewNop())

	rec, body := get(t, s, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestServer_Ready(t *testing.T) {
	t.Run("store reachable", func(t *testing.T) {
		s := NewServer(":0", stubPinger{}, nil, zap.NewNop())

		rec, body := get(t, s, "/ready")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["ready"])
	})

	t.Run("store down", func(t *testing.T) {
		s := NewServer(":0", stubPinger{err: errors.New("database is locked")}, nil, zap.NewNop())

		rec, body := get(t, s, "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, false, body["ready"])
		assert.Equal(t, "database is locked", body["error"])
	})
}

func TestServer_Metrics(t *testing.T) {
	m := metrics.New()
	m.IncLookup(metrics.LookupFound)
	s := NewServer(":0", nil, m, zap.NewNop())

	rec, _ := get(t, s, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cinemabot_lookups_total{result="found"} 1`)
}

func TestServer_Version(t *testing.T) {
	s := NewServer(":0", nil, nil, zap.NewNop())

	rec, body := get(t, s, "/version")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "go")

	rec, _ = get(t, s, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StartShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil, nil, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}
