package catalog

// SummaryOptions tune the aggregator.
type SummaryOptions struct {
	LowStockThreshold int64
}

// Summarize folds products into SummaryStats using the default low stock threshold.
func Summarize(products []Product) SummaryStats {
	return SummarizeWith(products, SummaryOptions{})
}

// SummarizeWith folds products in a single pass. Empty input yields zero stats.
func SummarizeWith(products []Product, opts SummaryOptions) SummaryStats {
	threshold := opts.LowStockThreshold
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}

	var stats SummaryStats
	var priceSum float64
	for _, p := range products {
		price := ResolvePrice(p)
		qty := p.Quantity
		stats.TotalValue += float64(qty) * price
		stats.TotalItems += qty
		priceSum += price
		switch {
		case qty == 0:
			stats.OutOfStockCount++
		case qty < threshold:
			stats.LowStockCount++
		}
	}
	stats.TotalProducts = len(products)
	if stats.TotalProducts > 0 {
		stats.AveragePrice = priceSum / float64(stats.TotalProducts)
	}
	return stats
}

// SummarizeProfit rolls per-product metrics into portfolio-wide profitability.
// The margin follows the same zero-division policy as a single product.
func SummarizeProfit(views []ProductView) ProfitMetrics {
	var total ProfitMetrics
	for _, v := range views {
		total.TotalSold += v.Metrics.TotalSold
		total.TotalRevenue += v.Metrics.TotalRevenue
		total.TotalCost += v.Metrics.TotalCost
		total.TotalProfit += v.Metrics.TotalProfit
	}
	total.ProfitMarginPercent = marginPercent(total.TotalSold, total.TotalProfit, total.TotalCost)
	return total
}
