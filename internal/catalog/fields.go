package catalog

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Built-in field names addressable by search and criteria. Any other name is
// looked up in Product.Attributes.
const (
	FieldID           = "id"
	FieldName         = "name"
	FieldDescription  = "description"
	FieldCategory     = "category"
	FieldQuantity     = "quantity"
	FieldCost         = "cost"
	FieldCostPrice    = "cost_price"
	FieldPrice        = "price"
	FieldSellingPrice = "selling_price"
)

// DefaultSearchFields are scanned when a caller supplies none.
var DefaultSearchFields = []string{FieldName, FieldDescription}

// Field returns the raw value stored under name. The boolean is false when the
// product carries no value for that field.
func (p Product) Field(name string) (any, bool) {
	switch name {
	case FieldID:
		return p.ID, true
	case FieldName:
		return p.Name, true
	case FieldDescription:
		return p.Description, true
	case FieldCategory:
		return p.Category, true
	case FieldQuantity:
		return p.Quantity, true
	case FieldCost:
		return deref(p.Cost)
	case FieldCostPrice:
		return deref(p.CostPrice)
	case FieldPrice:
		return deref(p.Price)
	case FieldSellingPrice:
		return deref(p.SellingPrice)
	}
	if p.Attributes == nil {
		return nil, false
	}
	v, ok := p.Attributes[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func deref(v *float64) (any, bool) {
	if v == nil {
		return nil, false
	}
	return *v, true
}

// ResolveCost picks the unit cost: the current field whenever it is set (even
// to zero), else the legacy alias, else zero.
func ResolveCost(p Product) float64 {
	return resolve(p.Cost, p.CostPrice)
}

// ResolvePrice picks the unit price with the same precedence as ResolveCost.
func ResolvePrice(p Product) float64 {
	return resolve(p.Price, p.SellingPrice)
}

func resolve(primary, legacy *float64) float64 {
	if primary != nil {
		return *primary
	}
	if legacy != nil {
		return *legacy
	}
	return 0
}

func isNeutral(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == "" || val == AllCategories
	}
	return false
}

// exactEqual compares without coercion: both values must share a dynamic type.
func exactEqual(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// ParseCriteria types raw key=value filters, as they arrive from a query string
// or a command line, to match the built-in fields they name: id and quantity
// become int64, the price and cost fields float64. Other keys, including
// attributes, stay strings. Neutral values pass through untouched.
func ParseCriteria(raw map[string]string) (Criteria, error) {
	criteria := make(Criteria, len(raw))
	for key, value := range raw {
		v, err := parseCriterion(key, value)
		if err != nil {
			return nil, err
		}
		criteria[key] = v
	}
	return criteria, nil
}

func parseCriterion(key, value string) (any, error) {
	if isNeutral(value) {
		return value, nil
	}
	switch key {
	case FieldID, FieldQuantity:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", ErrInvalidArgument, key)
		}
		return n, nil
	case FieldCost, FieldCostPrice, FieldPrice, FieldSellingPrice:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidArgument, key)
		}
		return f, nil
	}
	return value, nil
}
