package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	last Query
	err  error
	svc  *Service
}

func (s *stubSearcher) Search(ctx context.Context, q Query) (Result, error) {
	s.last = q
	if s.err != nil {
		return Result{}, s.err
	}
	return s.svc.Search(ctx, q)
}

func (s *stubSearcher) ProductProfit(ctx context.Context, id int64) (ProductView, error) {
	return s.svc.ProductProfit(ctx, id)
}

func (s *stubSearcher) Categories(ctx context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.svc.Categories(ctx)
}

func newTestRouter(t *testing.T) (http.Handler, *stubSearcher) {
	t.Helper()
	repo := newCountingRepo()
	stub := &stubSearcher{svc: NewService(repo, repo, nil, nil, ServiceConfig{})}
	r := chi.NewRouter()
	NewHandler(nil, stub).MountRoutes(r)
	return r, stub
}

func TestHandlerSearch(t *testing.T) {
	router, stub := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/products?q=lock&fields=name,+description&category=Door+Lock&filter[sku]=all", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	require.Equal(t, "lock", stub.last.Text)
	require.Equal(t, []string{"name", "description"}, stub.last.Fields)
	require.Equal(t, "Door Lock", stub.last.Criteria[FieldCategory])
	require.Equal(t, "all", stub.last.Criteria["sku"])

	var body Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	require.Equal(t, 2, body.Summary.TotalProducts)
}

func TestHandlerSearchValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/products?q="+strings.Repeat("x", 201), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "SearchRequest.Query")

	req = httptest.NewRequest(http.MethodGet, "/products?fields=name,,description", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerSearchTypesNumericFilters(t *testing.T) {
	router, stub := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?filter[quantity]=25", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, int64(25), stub.last.Criteria[FieldQuantity])
	var body Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	require.Equal(t, "Padlock", body.Items[0].Product.Name)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/summary?filter[price]=12", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 12.0, stub.last.Criteria[FieldPrice])

	for _, target := range []string{"/products?filter[quantity]=abc", "/summary?filter[selling_price]=cheap"} {
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusBadRequest, rr.Code, target)
		require.Contains(t, rr.Body.String(), "must be")
	}
}

func TestHandlerSummaryAndCategories(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/summary?category=Hardware", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var summary struct {
		Summary   SummaryStats  `json:"summary"`
		Portfolio ProfitMetrics `json:"portfolio"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	require.Equal(t, 1, summary.Summary.TotalProducts)
	require.Equal(t, 1, summary.Summary.LowStockCount)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/categories", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"categories":["all","Door Lock","Hardware"]}`, rr.Body.String())
}

func TestHandlerProductProfit(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/1/profit", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var view ProductView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.InDelta(t, 200.0, view.Metrics.TotalProfit, 1e-9)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/999/profit", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/abc/profit", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerMapsErrors(t *testing.T) {
	router, stub := newTestRouter(t)

	stub.err = errors.New("boom")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/categories", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "boom")

	stub.err = ErrInvalidArgument
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
