// Package testing carries shared fixtures and forces binaries into test mode
// when imported from a test.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"

	"github.com/odyssey-erp/odyssey-catalog/internal/catalog"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}

// SampleSnapshot returns a small catalog covering both price field shapes,
// an out of stock item and sales for an unknown product.
func SampleSnapshot() catalog.Snapshot {
	return catalog.Snapshot{
		Products: []catalog.Product{
			{ID: 1, Name: "Smart Lock", Description: "Keyless entry", Category: "Door Lock", Quantity: 4,
				Price: catalog.Float(100), Cost: catalog.Float(60)},
			{ID: 2, Name: "Hinge", Description: "Steel hinge", Category: "Hardware", Quantity: 40,
				SellingPrice: catalog.Float(12), CostPrice: catalog.Float(4)},
			{ID: 3, Name: "Padlock", Description: "Brass lock", Category: "Door Lock", Quantity: 0,
				Price: catalog.Float(40), Cost: catalog.Float(15), Attributes: map[string]any{"sku": "PL-3"}},
		},
		Sales: []catalog.SaleRecord{
			{ProductID: 1, QuantitySold: 3},
			{ProductID: 3, QuantitySold: 2},
			{ProductID: 99, QuantitySold: 7},
		},
	}
}
