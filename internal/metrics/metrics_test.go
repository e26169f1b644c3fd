package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.BuildsTotal.WithLabelValues("success").Inc()
	m.UniverseSize.Set(1234)

	// A second instance must not collide with the first
	require.NotPanics(t, func() { New() })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `universe_builder_builds_total{status="success"} 1`)
	assert.Contains(t, body, "universe_builder_selected_stocks 1234")
}
