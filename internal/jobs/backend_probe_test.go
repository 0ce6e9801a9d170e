package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auth_portal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBackendProbeJob_Probe(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Application is running!"))
	}))
	defer healthy.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	job := NewBackendProbeJob(&config.Config{BackendHealthURL: healthy.URL, BackendTimeout: time.Second}, zap.NewNop())
	res := job.Probe(context.Background())
	assert.True(t, res.Reachable)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	job = NewBackendProbeJob(&config.Config{BackendHealthURL: failing.URL, BackendTimeout: time.Second}, zap.NewNop())
	res = job.Probe(context.Background())
	assert.False(t, res.Reachable)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.NotEmpty(t, res.Error)
}

func TestBackendProbeJob_RunJobRecordsLast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	job := NewBackendProbeJob(&config.Config{BackendHealthURL: srv.URL, BackendTimeout: time.Second}, zap.NewNop())

	_, ok := job.Last()
	assert.False(t, ok)

	job.runJob()
	last, ok := job.Last()
	require.True(t, ok)
	assert.True(t, last.Reachable)

	srv.Close()
	job.runJob()
	last, ok = job.Last()
	require.True(t, ok)
	assert.False(t, last.Reachable)
}

func TestBackendProbeJob_SetupAndStart(t *testing.T) {
	job := NewBackendProbeJob(&config.Config{BackendHealthURL: "http://127.0.0.1:1", BackendProbeSchedule: "not a spec"}, zap.NewNop())
	assert.Error(t, job.SetupAndStart())

	job = NewBackendProbeJob(&config.Config{}, zap.NewNop())
	assert.NoError(t, job.SetupAndStart(), "missing schedule disables the job")
	job.Stop()
}

func TestCronLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cl := NewCronLogger(zap.New(core))

	cl.Info("tick", "entry", 1, "dangling")
	cl.Error(errors.New("bad"), "failed", "entry", 2)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "MISSING_VALUE", entries[0].ContextMap()["dangling"])
	assert.Equal(t, "bad", entries[1].ContextMap()["error"])
}
