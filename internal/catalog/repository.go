package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-catalog/internal/platform/db"
)

// Repository reads the live product and sale collections. Both are owned by
// another system; nothing here writes to them.
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListSales(ctx context.Context) ([]SaleRecord, error)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository reads catalog tables through pgx.
type PostgresRepository struct {
	db   querier
	pool *pgxpool.Pool
}

// NewPostgresRepository wraps a pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: pool, pool: pool}
}

const listProductsSQL = `SELECT id, name, COALESCE(description, ''), COALESCE(category, ''),
	GREATEST(COALESCE(quantity, 0), 0), cost, cost_price, price, selling_price,
	COALESCE(attributes, '{}'::jsonb)
FROM catalog_products
ORDER BY id`

// ListProducts loads every product in id order.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Quantity,
			&p.Cost, &p.CostPrice, &p.Price, &p.SellingPrice, &p.Attributes); err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		if len(p.Attributes) == 0 {
			p.Attributes = nil
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const listSalesSQL = `SELECT product_id, COALESCE(quantity_sold, 0) FROM catalog_sales ORDER BY id`

// ListSales loads the append-only sale history.
func (r *PostgresRepository) ListSales(ctx context.Context) ([]SaleRecord, error) {
	rows, err := r.db.Query(ctx, listSalesSQL)
	if err != nil {
		return nil, fmt.Errorf("catalog: list sales: %w", err)
	}
	defer rows.Close()

	var sales []SaleRecord
	for rows.Next() {
		var s SaleRecord
		if err := rows.Scan(&s.ProductID, &s.QuantitySold); err != nil {
			return nil, fmt.Errorf("catalog: scan sale: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// EnsureSchema creates the read tables when they are missing, for local setups.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS catalog_products (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	category TEXT,
	quantity BIGINT,
	cost DOUBLE PRECISION,
	cost_price DOUBLE PRECISION,
	price DOUBLE PRECISION,
	selling_price DOUBLE PRECISION,
	attributes JSONB
);
CREATE TABLE IF NOT EXISTS catalog_sales (
	id BIGSERIAL PRIMARY KEY,
	product_id BIGINT NOT NULL,
	quantity_sold BIGINT
);
CREATE INDEX IF NOT EXISTS catalog_sales_product_idx ON catalog_sales (product_id);`
	if _, err := r.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("catalog: ensure schema: %w", err)
	}
	return nil
}

const upsertProductSQL = `INSERT INTO catalog_products
	(id, name, description, category, quantity, cost, cost_price, price, selling_price, attributes)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	category = EXCLUDED.category,
	quantity = EXCLUDED.quantity,
	cost = EXCLUDED.cost,
	cost_price = EXCLUDED.cost_price,
	price = EXCLUDED.price,
	selling_price = EXCLUDED.selling_price,
	attributes = EXCLUDED.attributes`

const insertSaleSQL = `INSERT INTO catalog_sales (product_id, quantity_sold) VALUES ($1, $2)`

// ImportSnapshot upserts products and appends sales in one transaction. It
// reports how many sale rows were written so callers know whether to bump the
// sales version.
func (r *PostgresRepository) ImportSnapshot(ctx context.Context, snap Snapshot) (int, error) {
	if r.pool == nil {
		return 0, errors.New("catalog: import requires a connection pool")
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range snap.Products {
			var attrs any
			if len(p.Attributes) > 0 {
				attrs = p.Attributes
			}
			batch.Queue(upsertProductSQL, p.ID, p.Name, p.Description, p.Category, p.Quantity,
				p.Cost, p.CostPrice, p.Price, p.SellingPrice, attrs)
		}
		for _, s := range snap.Sales {
			batch.Queue(insertSaleSQL, s.ProductID, s.QuantitySold)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("catalog: import snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(snap.Sales), nil
}
