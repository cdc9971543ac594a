package catalog

import (
	"errors"
)

// AllCategories is the wildcard facet meaning "no constraint".
const AllCategories = "all"

// DefaultLowStockThreshold marks quantities below which an item counts as low stock.
const DefaultLowStockThreshold = 10

// Product is a catalog item as delivered by the owning store. Cost and price
// arrive under either their current name or a legacy alias depending on the
// record shape; both are kept and resolved by ResolveCost and ResolvePrice.
type Product struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Category     string         `json:"category,omitempty"`
	Quantity     int64          `json:"quantity"`
	Cost         *float64       `json:"cost,omitempty"`
	CostPrice    *float64       `json:"cost_price,omitempty"`
	Price        *float64       `json:"price,omitempty"`
	SellingPrice *float64       `json:"selling_price,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// SaleRecord is one sale event referencing a product.
type SaleRecord struct {
	ProductID    int64 `json:"product_id"`
	QuantitySold int64 `json:"quantity_sold"`
}

// Criteria maps a field name to the value it must equal exactly. Nil, empty
// string and "all" values leave the field unconstrained.
type Criteria map[string]any

// ProfitMetrics are derived per product from its sale history.
type ProfitMetrics struct {
	TotalSold           int64   `json:"total_sold"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalCost           float64 `json:"total_cost"`
	TotalProfit         float64 `json:"total_profit"`
	ProfitMarginPercent float64 `json:"profit_margin_percent"`
}

// SummaryStats roll up the currently filtered product set.
type SummaryStats struct {
	TotalProducts   int     `json:"total_products"`
	TotalValue      float64 `json:"total_value"`
	TotalItems      int64   `json:"total_items"`
	LowStockCount   int     `json:"low_stock_count"`
	OutOfStockCount int     `json:"out_of_stock_count"`
	AveragePrice    float64 `json:"average_price"`
}

// ProductView pairs a product with its profit metrics. Table and card
// renderings both consume this shape.
type ProductView struct {
	Product Product       `json:"product"`
	Cost    float64       `json:"unit_cost"`
	Price   float64       `json:"unit_price"`
	Metrics ProfitMetrics `json:"metrics"`
}

// ErrInvalidArgument reports a caller contract violation such as a
// malformed collection payload.
var ErrInvalidArgument = errors.New("catalog: invalid argument")

// ErrProductNotFound indicates the requested product id is not in the catalog.
var ErrProductNotFound = errors.New("catalog: product not found")

// Float returns a pointer to v, handy for building products in code.
func Float(v float64) *float64 {
	return &v
}
