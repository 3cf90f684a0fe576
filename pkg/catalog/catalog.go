// Package catalog describes the read-only product data the cart is priced against.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Product is the catalog summary of a purchasable item.
type Product struct {
	ID     string          `json:"_id"`
	Title  string          `json:"title"`
	Images []string        `json:"images"`
	Price  decimal.Decimal `json:"price"`
}

// Image returns the first image reference or an empty string.
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Repository looks up products by identifier. Identifiers that do not exist
// are omitted from the result, so it may be shorter than ids.
type Repository interface {
	Lookup(ctx context.Context, ids []string) ([]Product, error)
}

// ErrLookupFailed indicates the catalog could not be queried.
var ErrLookupFailed = errors.New("catalog lookup failed")

// Index keys products by identifier.
func Index(products []Product) map[string]Product {
	out := make(map[string]Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out
}

// Distinct returns ids without duplicates, keeping first-occurrence order.
func Distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
