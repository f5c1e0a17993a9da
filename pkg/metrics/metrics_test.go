package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RoundsTotal.WithLabelValues("margin sampling").Inc()
	m.RoundsTotal.WithLabelValues("margin sampling").Inc()
	m.Accuracy.WithLabelValues("margin sampling").Set(0.75)
	m.DensityCacheHits.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RoundsTotal.WithLabelValues("margin sampling")))
	assert.Equal(t, 0.75, testutil.ToFloat64(m.Accuracy.WithLabelValues("margin sampling")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DensityCacheHits))

	n, err := testutil.GatherAndCount(reg, "activelearn_rounds_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A second set of collectors on the same registry is a duplicate.
	assert.Panics(t, func() { New(reg) })
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.CurvesStoredTotal.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `activelearn_curves_stored_total{status="ok"} 1`), body)
}
