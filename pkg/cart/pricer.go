package cart

import (
	"context"

	"github.com/shopspring/decimal"

	"cartflow/pkg/catalog"
)

// Line is one distinct product of a cart with its aggregated quantity.
type Line struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title,omitempty"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
	// Known is false when the catalog had no entry for ProductID.
	Known bool `json:"known"`
}

// Summary is a priced cart.
type Summary struct {
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// PriceLines aggregates s into one line per distinct id, in order of first
// occurrence. Ids missing from products are priced at zero but keep their
// quantity.
func PriceLines(s State, products map[string]catalog.Product) Summary {
	index := make(map[string]int)
	lines := make([]Line, 0)
	for _, id := range s {
		if i, ok := index[id]; ok {
			lines[i].Quantity++
			continue
		}
		index[id] = len(lines)
		line := Line{ProductID: id, Quantity: 1, UnitPrice: decimal.Zero}
		if p, ok := products[id]; ok {
			line.Title = p.Title
			line.Image = p.Image()
			line.UnitPrice = p.Price
			line.Known = true
		}
		lines = append(lines, line)
	}

	total := decimal.Zero
	for i := range lines {
		lines[i].Total = lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
		total = total.Add(lines[i].Total)
	}
	return Summary{Lines: lines, Total: total}
}

// Quote looks s up in repo and prices it. When the lookup fails the summary
// is still returned, priced as if the catalog were empty, together with the
// lookup error.
func Quote(ctx context.Context, repo catalog.Repository, s State) (Summary, error) {
	if len(s) == 0 {
		return PriceLines(s, nil), nil
	}
	products, err := repo.Lookup(ctx, catalog.Distinct(s))
	if err != nil {
		return PriceLines(s, nil), err
	}
	return PriceLines(s, catalog.Index(products)), nil
}
