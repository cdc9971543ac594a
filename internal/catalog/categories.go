package catalog

// Categories lists the distinct category facets in first-seen order, led by
// the "all" wildcard. Blank categories are skipped.
func Categories(products []Product) []string {
	out := []string{AllCategories}
	seen := map[string]struct{}{AllCategories: {}}
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
