package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Snapshot is the JSON exchange shape for a catalog export.
type Snapshot struct {
	Products []Product    `json:"products"`
	Sales    []SaleRecord `json:"sales"`
}

// DecodeSnapshot parses a catalog export. A payload whose collections are not
// arrays is rejected with ErrInvalidArgument.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var raw struct {
		Products json.RawMessage `json:"products"`
		Sales    json.RawMessage `json:"sales"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode snapshot: %v", ErrInvalidArgument, err)
	}
	var snap Snapshot
	if err := decodeCollection(raw.Products, &snap.Products); err != nil {
		return Snapshot{}, fmt.Errorf("%w: products: %v", ErrInvalidArgument, err)
	}
	if err := decodeCollection(raw.Sales, &snap.Sales); err != nil {
		return Snapshot{}, fmt.Errorf("%w: sales: %v", ErrInvalidArgument, err)
	}
	return snap, nil
}

func decodeCollection[T any](raw json.RawMessage, dest *[]T) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] != '[' {
		return errors.New("expected array")
	}
	return json.Unmarshal(raw, dest)
}

// MemoryRepository holds a catalog in process. Every change to the sales
// collection advances its version.
type MemoryRepository struct {
	mu       sync.RWMutex
	products []Product
	sales    []SaleRecord
	version  int64
}

// NewMemoryRepository seeds a repository from a snapshot.
func NewMemoryRepository(snap Snapshot) *MemoryRepository {
	return &MemoryRepository{products: snap.Products, sales: snap.Sales, version: 1}
}

// ListProducts returns the current product collection.
func (m *MemoryRepository) ListProducts(ctx context.Context) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.products, nil
}

// ListSales returns the current sale collection.
func (m *MemoryRepository) ListSales(ctx context.Context) ([]SaleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sales, nil
}

// SalesVersion implements VersionSource.
func (m *MemoryRepository) SalesVersion(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version, nil
}

// ReplaceProducts swaps the product collection.
func (m *MemoryRepository) ReplaceProducts(products []Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = products
}

// AppendSales records new sale events and advances the version. Readers keep
// the slice they already hold.
func (m *MemoryRepository) AppendSales(records ...SaleRecord) {
	if len(records) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make([]SaleRecord, 0, len(m.sales)+len(records))
	next = append(next, m.sales...)
	m.sales = append(next, records...)
	m.version++
}
