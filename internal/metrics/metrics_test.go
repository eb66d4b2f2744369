package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	r := New()

	r.ObserveHTTP("GET", "/api/memories", 200, 10*time.Millisecond)
	r.ObserveHTTP("GET", "/api/memories", 200, 10*time.Millisecond)
	r.ObserveOracleCall("embed", "ok", time.Millisecond)
	r.SetBreakerState("embed", gobreaker.StateOpen)
	r.ObserveSearch(0, true)
	r.ObserveSentiment("peaceful")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "/api/memories", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.oracleCalls.WithLabelValues("embed", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.breakerState.WithLabelValues("embed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.searchDegraded))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sentiment.WithLabelValues("peaceful")))
}

func TestRegistry_Handler(t *testing.T) {
	r := New()
	r.ObserveOracleCall("complete", "timeout", time.Second)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `memory_journal_oracle_calls_total{op="complete",outcome="timeout"} 1`))
}

func TestNew_RegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveSearch(3, false)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.searchDegraded))
}
