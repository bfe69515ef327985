package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Conversions.WithLabelValues("ok").Inc()
	m.StockRejects.Add(2)
	m.CatalogMisses.WithLabelValues("1").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Conversions.WithLabelValues("ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.StockRejects))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Panics(t, func() { New(reg) }, "double registration")
}

func TestHandlerServes(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
