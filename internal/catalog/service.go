package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-catalog/internal/debounce"
	"github.com/odyssey-erp/odyssey-catalog/internal/observability"
)

// ServiceConfig tunes search defaults.
type ServiceConfig struct {
	SearchFields      []string
	LowStockThreshold int64
	Debounce          time.Duration
}

// Query describes one search over the catalog.
type Query struct {
	Text     string
	Fields   []string
	Criteria Criteria
}

// Result is everything a table or card view renders for one query.
type Result struct {
	Items      []ProductView `json:"items"`
	Summary    SummaryStats  `json:"summary"`
	Portfolio  ProfitMetrics `json:"portfolio"`
	Categories []string      `json:"categories"`
}

// Service runs the filter, join and aggregation pipeline over the live
// collections. It is a pure function of (products, sales, query); callers
// re-invoke it whenever an input changes.
type Service struct {
	repo     Repository
	versions VersionSource
	logger   *slog.Logger
	metrics  *observability.CatalogMetrics
	cfg      ServiceConfig

	mu    sync.RWMutex
	index *indexSnapshot
	group singleflight.Group
	now   func() time.Time
}

type indexSnapshot struct {
	version int64
	index   *SalesIndex
}

// NewService wires a Repository with an optional VersionSource. Without a
// version source the sales index is rebuilt on every call.
func NewService(repo Repository, versions VersionSource, logger *slog.Logger, metrics *observability.CatalogMetrics, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.SearchFields) == 0 {
		cfg.SearchFields = DefaultSearchFields
	}
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = DefaultLowStockThreshold
	}
	return &Service{
		repo:     repo,
		versions: versions,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Search filters products, joins each match with its sales and summarises the result.
func (s *Service) Search(ctx context.Context, q Query) (Result, error) {
	start := s.now()
	var (
		products []Product
		index    *SalesIndex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.repo.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		index, err = s.salesIndex(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	fields := q.Fields
	if len(fields) == 0 {
		fields = s.cfg.SearchFields
	}
	filtered := Filter(products, q.Text, fields, q.Criteria)
	views := BuildViews(filtered, index)
	result := Result{
		Items:      views,
		Summary:    SummarizeWith(filtered, SummaryOptions{LowStockThreshold: s.cfg.LowStockThreshold}),
		Portfolio:  SummarizeProfit(views),
		Categories: Categories(products),
	}
	s.metrics.ObserveSearch(s.now().Sub(start), len(filtered))
	return result, nil
}

// Summary returns only the aggregates for a query.
func (s *Service) Summary(ctx context.Context, q Query) (SummaryStats, ProfitMetrics, error) {
	res, err := s.Search(ctx, q)
	if err != nil {
		return SummaryStats{}, ProfitMetrics{}, err
	}
	return res.Summary, res.Portfolio, nil
}

// ProductProfit joins a single product with its sales.
func (s *Service) ProductProfit(ctx context.Context, id int64) (ProductView, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return ProductView{}, err
	}
	for _, p := range products {
		if p.ID != id {
			continue
		}
		index, err := s.salesIndex(ctx)
		if err != nil {
			return ProductView{}, err
		}
		return BuildViews([]Product{p}, index)[0], nil
	}
	return ProductView{}, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
}

// Categories lists facets from the unfiltered product collection.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return Categories(products), nil
}

// Warm builds the sales index for the current version ahead of the next query.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.salesIndex(ctx)
	return err
}

func (s *Service) salesIndex(ctx context.Context) (*SalesIndex, error) {
	if s.versions == nil {
		return s.buildIndex(ctx, 0)
	}
	version, err := s.versions.SalesVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: sales version: %w", err)
	}
	s.mu.RLock()
	snap := s.index
	s.mu.RUnlock()
	if snap != nil && snap.version == version {
		return snap.index, nil
	}

	// The build outlives any single caller; each caller stops waiting on its own ctx.
	buildCtx := context.WithoutCancel(ctx)
	resultChan := s.group.DoChan(strconv.FormatInt(version, 10), func() (interface{}, error) {
		return s.buildIndex(buildCtx, version)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*SalesIndex), nil
	}
}

func (s *Service) buildIndex(ctx context.Context, version int64) (*SalesIndex, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	idx := NewSalesIndex(sales)
	s.metrics.IndexBuilt(idx.Len())
	if version == 0 {
		return idx, nil
	}
	s.mu.Lock()
	if s.index == nil || s.index.version <= version {
		s.index = &indexSnapshot{version: version, index: idx}
	}
	s.mu.Unlock()
	s.logger.Debug("sales index rebuilt", slog.Int64("version", version), slog.Int("records", idx.Len()))
	return idx, nil
}

// VersionSubscriber streams sales version bumps.
type VersionSubscriber interface {
	Subscribe(ctx context.Context) (<-chan int64, error)
}

// WatchInvalidation warms the index after each burst of version bumps has
// gone quiet. It blocks until ctx is done.
func (s *Service) WatchInvalidation(ctx context.Context, sub VersionSubscriber) error {
	if sub == nil {
		return errors.New("catalog: version subscriber required")
	}
	bumps, err := sub.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("catalog: subscribe: %w", err)
	}
	settled, err := debounce.New[int64](ctx, s.cfg.Debounce)
	if err != nil {
		return err
	}
	defer settled.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ver, ok := <-bumps:
			if !ok {
				return ctx.Err()
			}
			settled.Push(ver)
		case ver, ok := <-settled.C():
			if !ok {
				return ctx.Err()
			}
			if err := s.Warm(ctx); err != nil {
				s.logger.Warn("warm sales index", slog.Int64("version", ver), slog.Any("error", err))
				continue
			}
			s.logger.Info("sales index warmed", slog.Int64("version", ver))
		}
	}
}
