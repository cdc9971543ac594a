package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-catalog/internal/observability"
)

type countingRepo struct {
	*MemoryRepository
	mu         sync.Mutex
	salesCalls int
	err        error
}

func (r *countingRepo) ListSales(ctx context.Context) ([]SaleRecord, error) {
	r.mu.Lock()
	r.salesCalls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.MemoryRepository.ListSales(ctx)
}

func (r *countingRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.salesCalls
}

func newCountingRepo() *countingRepo {
	return &countingRepo{MemoryRepository: NewMemoryRepository(Snapshot{
		Products: sampleProducts(),
		Sales: []SaleRecord{
			{ProductID: 1, QuantitySold: 5},
			{ProductID: 3, QuantitySold: 2},
			{ProductID: 77, QuantitySold: 9},
		},
	})}
}

func TestServiceSearchJoinsAndSummarises(t *testing.T) {
	repo := newCountingRepo()
	svc := NewService(repo, repo, nil, nil, ServiceConfig{})
	ctx := context.Background()

	res, err := svc.Search(ctx, Query{Text: "lock", Criteria: Criteria{FieldCategory: "Door Lock"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	require.Equal(t, int64(5), res.Items[0].Metrics.TotalSold)
	require.InDelta(t, 66.666, res.Items[0].Metrics.ProfitMarginPercent, 0.01)
	require.Equal(t, 2, res.Summary.TotalProducts)
	require.Equal(t, 1, res.Summary.OutOfStockCount)
	require.Equal(t, int64(7), res.Portfolio.TotalSold)
	require.Equal(t, []string{"all", "Door Lock", "Hardware"}, res.Categories)

	all, err := svc.Search(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all.Items, 4)
}

func TestServiceReusesIndexPerVersion(t *testing.T) {
	repo := newCountingRepo()
	registry := prometheus.NewRegistry()
	svc := NewService(repo, repo, nil, observability.NewCatalogMetrics(registry), ServiceConfig{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Search(ctx, Query{Text: "hinge"})
		require.NoError(t, err)
	}
	require.Equal(t, 1, repo.calls())

	repo.AppendSales(SaleRecord{ProductID: 2, QuantitySold: 3})
	res, err := svc.Search(ctx, Query{Text: "hinge"})
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls())
	require.Len(t, res.Items, 1)
	require.Equal(t, int64(3), res.Items[0].Metrics.TotalSold)
}

func TestServiceWithoutVersionSourceRebuilds(t *testing.T) {
	repo := newCountingRepo()
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Search(ctx, Query{})
	require.NoError(t, err)
	_, err = svc.Search(ctx, Query{})
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls())
}

func TestServiceProductProfit(t *testing.T) {
	repo := newCountingRepo()
	svc := NewService(repo, repo, nil, nil, ServiceConfig{})
	ctx := context.Background()

	view, err := svc.ProductProfit(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "Padlock", view.Product.Name)
	require.InDelta(t, 80.0, view.Metrics.TotalRevenue, 1e-9)
	require.Equal(t, 15.0, view.Cost)

	_, err = svc.ProductProfit(ctx, 404)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestServicePropagatesRepositoryErrors(t *testing.T) {
	repo := newCountingRepo()
	repo.err = errors.New("db down")
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})

	_, err := svc.Search(context.Background(), Query{})
	require.ErrorContains(t, err, "db down")
}

func TestVersionStoreAndWatchInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	store := NewVersionStore(client)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ver, err := store.SalesVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)

	repo := newCountingRepo()
	svc := NewService(repo, store, nil, nil, ServiceConfig{Debounce: 20 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- svc.WatchInvalidation(ctx, store) }()

	// Wait for the subscription before publishing.
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("catalog.sales.*")) == 1
	}, time.Second, 5*time.Millisecond)

	for i := 0; i < 5; i++ {
		_, err := store.Bump(ctx)
		require.NoError(t, err)
	}
	ver, err = store.SalesVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(6), ver)

	require.Eventually(t, func() bool { return repo.calls() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 1, repo.calls(), "bursts should warm once")

	_, err = svc.Search(ctx, Query{})
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls())

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestVersionStoreNilClient(t *testing.T) {
	var store *VersionStore
	ver, err := store.SalesVersion(context.Background())
	require.NoError(t, err)
	require.Zero(t, ver)
	_, err = store.Subscribe(context.Background())
	require.Error(t, err)
}

func TestDecodeSnapshot(t *testing.T) {
	snap, err := DecodeSnapshot(strings.NewReader(`{
		"products": [
			{"id": 1, "name": "Lock A", "category": "Door Lock", "quantity": 0, "price": 100, "cost": 60},
			{"id": 2, "name": "Hinge", "quantity": 5, "selling_price": 12, "cost_price": 4, "attributes": {"sku": "H-1"}}
		],
		"sales": [{"product_id": 1, "quantity_sold": 5}, {"product_id": 1}]
	}`))
	require.NoError(t, err)
	require.Len(t, snap.Products, 2)
	require.Len(t, snap.Sales, 2)
	require.Equal(t, 12.0, ResolvePrice(snap.Products[1]))
	require.Equal(t, "H-1", snap.Products[1].Attributes["sku"])
	require.Zero(t, snap.Sales[1].QuantitySold)

	snap, err = DecodeSnapshot(strings.NewReader(`{}`))
	require.NoError(t, err)
	require.Empty(t, snap.Products)

	_, err = DecodeSnapshot(strings.NewReader(`{"products": {"id": 1}}`))
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = DecodeSnapshot(strings.NewReader(`{"sales": "nope"}`))
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = DecodeSnapshot(strings.NewReader(`[`))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

type slowSalesRepo struct {
	*MemoryRepository
	started chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	calls   int
}

func (r *slowSalesRepo) ListSales(ctx context.Context) ([]SaleRecord, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	r.once.Do(func() { close(r.started) })
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.MemoryRepository.ListSales(ctx)
}

func TestServiceSharedIndexBuildSurvivesCallerCancel(t *testing.T) {
	repo := &slowSalesRepo{
		MemoryRepository: newCountingRepo().MemoryRepository,
		started:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	svc := NewService(repo, repo, nil, nil, ServiceConfig{})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Search(ctxA, Query{})
		errA <- err
	}()
	<-repo.started

	type outcome struct {
		res Result
		err error
	}
	resB := make(chan outcome, 1)
	go func() {
		res, err := svc.Search(context.Background(), Query{Text: "padlock"})
		resB <- outcome{res: res, err: err}
	}()
	// Let the second search join the in-flight build.
	time.Sleep(30 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled search did not return")
	}

	close(repo.release)
	select {
	case out := <-resB:
		require.NoError(t, out.err)
		require.Len(t, out.res.Items, 1)
		require.Equal(t, int64(2), out.res.Items[0].Metrics.TotalSold)
	case <-time.After(time.Second):
		t.Fatal("second search did not return")
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Equal(t, 1, repo.calls)
}
