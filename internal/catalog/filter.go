package catalog

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Filter narrows items to those matching both the free-text query and every
// active criterion, preserving relative order. With nothing to filter on the
// input slice is returned as is.
func Filter(items []Product, query string, fields []string, criteria Criteria) []Product {
	active := activeCriteria(criteria)
	if query == "" && len(active) == 0 {
		if items == nil {
			return []Product{}
		}
		return items
	}

	m := newMatcher(query)
	out := make([]Product, 0, len(items))
	for _, item := range items {
		if query != "" && !m.matchAny(item, fields) {
			continue
		}
		if !matchCriteria(item, active) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// MatchesQuery reports whether any of fields contains query, ignoring case.
func MatchesQuery(item Product, query string, fields []string) bool {
	if query == "" {
		return true
	}
	return newMatcher(query).matchAny(item, fields)
}

type matcher struct {
	lower cases.Caser
	query string
}

func newMatcher(query string) *matcher {
	c := cases.Lower(language.Und)
	return &matcher{lower: c, query: c.String(query)}
}

func (m *matcher) matchAny(item Product, fields []string) bool {
	for _, name := range fields {
		v, ok := item.Field(name)
		if !ok {
			continue
		}
		if m.match(v) {
			return true
		}
	}
	return false
}

func (m *matcher) match(v any) bool {
	switch val := v.(type) {
	case string:
		return strings.Contains(m.lower.String(val), m.query)
	default:
		s, ok := numericString(v)
		if !ok {
			return false
		}
		return strings.Contains(s, m.query)
	}
}

func numericString(v any) (string, bool) {
	switch val := v.(type) {
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	case uint32:
		return strconv.FormatUint(uint64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	}
	return "", false
}

type criterion struct {
	key   string
	value any
}

func activeCriteria(criteria Criteria) []criterion {
	if len(criteria) == 0 {
		return nil
	}
	active := make([]criterion, 0, len(criteria))
	for k, v := range criteria {
		if isNeutral(v) {
			continue
		}
		active = append(active, criterion{key: k, value: v})
	}
	return active
}

func matchCriteria(item Product, active []criterion) bool {
	for _, c := range active {
		v, ok := item.Field(c.key)
		if !ok || !exactEqual(v, c.value) {
			return false
		}
	}
	return true
}

// HasActive reports whether any criterion constrains the result.
func (c Criteria) HasActive() bool {
	for _, v := range c {
		if !isNeutral(v) {
			return true
		}
	}
	return false
}
