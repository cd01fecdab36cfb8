// internal/metrics/collector_test.go
package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Run("independent registries", func(t *testing.T) {
		a := New()
		b := New()

		a.IncUpdate(KindQuery)

		assert.Equal(t, 1.0, testutil.ToFloat64(a.Updates.WithLabelValues(KindQuery)))
		assert.Equal(t, 0.0, testutil.ToFloat64(b.Updates.WithLabelValues(KindQuery)))
	})

	t.Run("labels", func(t *testing.T) {
		m := New()
		m.IncLookup(LookupFound)
		m.IncLookup(LookupFound)
		m.IncLookup(LookupNotFound)
		m.IncProbe("ok")
		m.IncCache("meta", true)
		m.IncCache("meta", false)
		m.IncRateLimited()

		assert.Equal(t, 2.0, testutil.ToFloat64(m.Lookups.WithLabelValues(LookupFound)))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues(LookupNotFound)))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Probes.WithLabelValues("ok")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("meta", "hit")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("meta", "miss")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
	})

	t.Run("histogram", func(t *testing.T) {
		m := New()
		m.ObserveTMDB("search", 150*time.Millisecond)

		assert.Equal(t, 1, testutil.CollectAndCount(m.TMDBLatency))
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncUpdate(KindCommand)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `cinemabot_updates_total{kind="command"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
