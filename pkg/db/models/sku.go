package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SKU is a purchasable product variant. Stock and Sales are only ever written
// by the inventory ledger.
type SKU struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name            string          `gorm:"column:name;not null"`
	Caption         string          `gorm:"column:caption;not null;default:''"`
	CategoryID      int64           `gorm:"column:category_id;not null;index"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Stock           int             `gorm:"column:stock;not null;default:0;check:stock >= 0"`
	Sales           int             `gorm:"column:sales;not null;default:0;check:sales >= 0"`
	DefaultImageURL string          `gorm:"column:default_image_url;not null;default:''"`
	IsLaunched      bool            `gorm:"column:is_launched;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (SKU) TableName() string { return "skus" }
