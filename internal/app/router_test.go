package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-catalog/internal/catalog"
	"github.com/odyssey-erp/odyssey-catalog/internal/observability"
	"github.com/odyssey-erp/odyssey-catalog/jobs"
	fixtures "github.com/odyssey-erp/odyssey-catalog/testing"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	repo := catalog.NewMemoryRepository(fixtures.SampleSnapshot())
	metrics := observability.NewMetrics()
	svc := catalog.NewService(repo, repo, nil, metrics.Catalog(), catalog.ServiceConfig{})
	return NewRouter(RouterParams{
		Config:         &Config{AppEnv: "development", CatalogRateLimit: 1000},
		CatalogHandler: catalog.NewHandler(nil, svc),
		JobHandler:     jobs.NewHandler(nil, nil),
		Metrics:        metrics,
	})
}

func TestRouterServesCatalogAndHealth(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/catalog/products?q=lock", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Contains(t, rr.Body.String(), `"total_sold":3`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `odyssey_http_requests_total{code="200",route="/api/catalog/products"} 1`)
	require.Contains(t, rr.Body.String(), "odyssey_catalog_search_results_count 1")
}

func TestInTestMode(t *testing.T) {
	require.True(t, InTestMode())
}
