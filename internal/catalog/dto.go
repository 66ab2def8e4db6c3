package catalog

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// SKUDTO is the public sku payload.
type SKUDTO struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Caption         string          `json:"caption"`
	CategoryID      int64           `json:"category_id"`
	Price           decimal.Decimal `json:"price"`
	Stock           int             `json:"stock"`
	Sales           int             `json:"sales"`
	DefaultImageURL string          `json:"default_image_url"`
}

func mapSKU(sku models.SKU) SKUDTO {
	return SKUDTO{
		ID:              sku.ID,
		Name:            sku.Name,
		Caption:         sku.Caption,
		CategoryID:      sku.CategoryID,
		Price:           sku.Price,
		Stock:           sku.Stock,
		Sales:           sku.Sales,
		DefaultImageURL: sku.DefaultImageURL,
	}
}
