package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-catalog/internal/platform/httpx"
)

// Searcher is the read API the HTTP handler needs.
type Searcher interface {
	Search(ctx context.Context, q Query) (Result, error)
	ProductProfit(ctx context.Context, id int64) (ProductView, error)
	Categories(ctx context.Context) ([]string, error)
}

// Handler exposes catalog search over JSON.
type Handler struct {
	logger    *slog.Logger
	service   Searcher
	validator *validator.Validate
}

// NewHandler builds the catalog HTTP handler.
func NewHandler(logger *slog.Logger, service Searcher) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes attaches catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.handleSearch)
	r.Get("/products/{id}/profit", h.handleProductProfit)
	r.Get("/summary", h.handleSummary)
	r.Get("/categories", h.handleCategories)
}

// SearchRequest is the validated form of the search query string.
type SearchRequest struct {
	Query    string            `validate:"max=200"`
	Fields   []string          `validate:"max=16,dive,required,max=64"`
	Category string            `validate:"max=128"`
	Filters  map[string]string `validate:"max=16,dive,keys,required,max=64,endkeys,max=128"`
}

// ToQuery converts the request into engine input, typing filters on built-in
// numeric fields.
func (r SearchRequest) ToQuery() (Query, error) {
	criteria, err := ParseCriteria(r.Filters)
	if err != nil {
		return Query{}, err
	}
	if r.Category != "" {
		criteria[FieldCategory] = r.Category
	}
	return Query{Text: r.Query, Fields: r.Fields, Criteria: criteria}, nil
}

func parseSearchRequest(r *http.Request) SearchRequest {
	values := r.URL.Query()
	req := SearchRequest{
		Query:    values.Get("q"),
		Category: values.Get("category"),
	}
	if raw := values.Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			req.Fields = append(req.Fields, strings.TrimSpace(f))
		}
	}
	for key, vals := range values {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") || len(vals) == 0 {
			continue
		}
		if req.Filters == nil {
			req.Filters = make(map[string]string)
		}
		req.Filters[key[len("filter["):len(key)-1]] = vals[0]
	}
	return req
}

func (h *Handler) decodeSearch(w http.ResponseWriter, r *http.Request) (Query, bool) {
	req := parseSearchRequest(r)
	if err := h.validator.Struct(req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				fields[fieldErr.Namespace()] = fieldErr.Tag()
			}
		}
		httpx.ValidationProblem(w, fields)
		return Query{}, false
	}
	q, err := req.ToQuery()
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
		return Query{}, false
	}
	return q, true
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeSearch(w, r)
	if !ok {
		return
	}
	result, err := h.service.Search(r.Context(), q)
	if err != nil {
		h.fail(w, "catalog search", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeSearch(w, r)
	if !ok {
		return
	}
	result, err := h.service.Search(r.Context(), q)
	if err != nil {
		h.fail(w, "catalog summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"summary":   result.Summary,
		"portfolio": result.Portfolio,
	})
}

func (h *Handler) handleProductProfit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: product id must be an integer", httpx.ErrValidation))
		return
	}
	view, err := h.service.ProductProfit(r.Context(), id)
	if err != nil {
		h.fail(w, "catalog product profit", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.fail(w, "catalog categories", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrNotFound, err))
	case errors.Is(err, ErrInvalidArgument):
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
