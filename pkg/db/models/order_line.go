package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine snapshots the sku price at checkout time and is immutable afterward.
type OrderLine struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   string          `gorm:"column:order_id;not null;index"`
	SKUID     int64           `gorm:"column:sku_id;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
