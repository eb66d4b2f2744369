package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method, route string
	status        int
}

type fakeObserver struct{ calls []recordedCall }

func (f *fakeObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	f.calls = append(f.calls, recordedCall{method, route, status})
}

func newRouter(logger *slog.Logger, observer HTTPObserver) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(Logger(logger))
	r.Use(Metrics(observer))
	r.Get("/memories/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})
	return r
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	obs := &fakeObserver{}
	r := newRouter(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), obs)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/memories/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, obs.calls, 2)
	assert.Equal(t, recordedCall{"GET", "/memories/{id}", http.StatusTeapot}, obs.calls[0])
	assert.Equal(t, http.StatusNotFound, obs.calls[1].status)
}

func TestLogger_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	r := newRouter(slog.New(slog.NewTextHandler(&buf, nil)), &fakeObserver{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/memories/abc", nil))

	line := buf.String()
	assert.Contains(t, line, "level=WARN")
	assert.Contains(t, line, "status=418")
	assert.Contains(t, line, "route=/memories/{id}")
	assert.Contains(t, line, "bytes=15")
	assert.True(t, strings.Contains(line, "request_id="), "missing request id in %q", line)
}
