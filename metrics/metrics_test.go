package metrics

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersStandardSet(t *testing.T) {
	m := NewMetrics("beats-test")
	m.TreeOpsTotal.WithLabelValues("add", "ok").Inc()
	m.TreeClampVisits.Add(3)
	m.TreesActive.Set(2)
	m.RegisterBuildInfo("beats-test", "v1")
	m.RegisterBuildInfo("beats-test", "v2")

	assert.InDelta(t, 1, testutil.ToFloat64(m.TreeOpsTotal.WithLabelValues("add", "ok")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.TreeClampVisits), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.TreesActive), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BuildInfo.WithLabelValues("beats-test", "v1", runtime.Version())), 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, name := range []string{"tree_ops_total", "tree_clamp_visits_total", "trees_active", "beats_build_info", "go_goroutines"} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}

func TestBuildInfoDefaultsUnknownLabels(t *testing.T) {
	m := NewMetrics("beats-test")
	m.RegisterBuildInfo("", "")
	assert.InDelta(t, 1, testutil.ToFloat64(m.BuildInfo.WithLabelValues("unknown", "unknown", runtime.Version())), 0)

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RegisterBuildInfo("beats", "v1") })
}
