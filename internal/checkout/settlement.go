package checkout

import (
	"context"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// SettlementSKU is a selected sku priced at its current catalog price.
type SettlementSKU struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	DefaultImageURL string          `json:"default_image_url"`
	Price           decimal.Decimal `json:"price"`
	Count           int             `json:"count"`
}

// Settlement previews the order the current selection would place.
type Settlement struct {
	Freight decimal.Decimal `json:"freight"`
	SKUs    []SettlementSKU `json:"skus"`
}

// Settlement only reads. Skus that left the catalog are omitted.
func (s *service) Settlement(ctx context.Context, userID int64) (*Settlement, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	lines, err := s.cart.SelectedLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &Settlement{Freight: s.freight, SKUs: []SettlementSKU{}}
	if len(lines) == 0 {
		return out, nil
	}

	counts := make(map[int64]int, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lockOrder(lines) {
		counts[line.SKUID] = line.Quantity
		ids = append(ids, line.SKUID)
	}
	skus, err := s.catalog.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, sku := range skus {
		out.SKUs = append(out.SKUs, SettlementSKU{
			ID:              sku.ID,
			Name:            sku.Name,
			DefaultImageURL: sku.DefaultImageURL,
			Price:           sku.Price,
			Count:           counts[sku.ID],
		})
	}
	return out, nil
}
