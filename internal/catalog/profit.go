package catalog

// SalesIndex groups sale records by product id so each product joins in
// constant time instead of rescanning the whole sale history.
type SalesIndex struct {
	byProduct map[int64][]SaleRecord
	records   int
}

// NewSalesIndex groups sales by product id. Records referencing unknown
// products are kept but only surface when that id is looked up.
func NewSalesIndex(sales []SaleRecord) *SalesIndex {
	idx := &SalesIndex{byProduct: make(map[int64][]SaleRecord), records: len(sales)}
	for _, s := range sales {
		idx.byProduct[s.ProductID] = append(idx.byProduct[s.ProductID], s)
	}
	return idx
}

// Sales returns the records joined to productID.
func (idx *SalesIndex) Sales(productID int64) []SaleRecord {
	if idx == nil {
		return nil
	}
	return idx.byProduct[productID]
}

// TotalSold sums quantity sold for productID. Negative quantities count as zero.
func (idx *SalesIndex) TotalSold(productID int64) int64 {
	var total int64
	for _, s := range idx.Sales(productID) {
		if s.QuantitySold > 0 {
			total += s.QuantitySold
		}
	}
	return total
}

// Len reports how many sale records were indexed.
func (idx *SalesIndex) Len() int {
	if idx == nil {
		return 0
	}
	return idx.records
}

// ComputeProfitMetrics joins product with its sales and derives revenue, cost,
// profit and margin. When index is nil a one-off index is built from sales;
// callers iterating many products should pass a shared index.
func ComputeProfitMetrics(product Product, sales []SaleRecord, index *SalesIndex) ProfitMetrics {
	if index == nil {
		index = NewSalesIndex(sales)
	}
	sold := index.TotalSold(product.ID)
	cost := ResolveCost(product)
	price := ResolvePrice(product)

	m := ProfitMetrics{
		TotalSold:    sold,
		TotalRevenue: float64(sold) * price,
		TotalCost:    float64(sold) * cost,
	}
	m.TotalProfit = m.TotalRevenue - m.TotalCost
	m.ProfitMarginPercent = marginPercent(m.TotalSold, m.TotalProfit, m.TotalCost)
	return m
}

// marginPercent is zero unless units were sold against a positive cost basis,
// so "no data" and "break-even" both report 0%.
func marginPercent(sold int64, profit, cost float64) float64 {
	if sold <= 0 || cost <= 0 {
		return 0
	}
	return profit / cost * 100
}

// BuildViews joins every product with the shared index. A nil index means no
// sales have been recorded.
func BuildViews(products []Product, index *SalesIndex) []ProductView {
	if index == nil {
		index = NewSalesIndex(nil)
	}
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, ProductView{
			Product: p,
			Cost:    ResolveCost(p),
			Price:   ResolvePrice(p),
			Metrics: ComputeProfitMetrics(p, nil, index),
		})
	}
	return views
}
