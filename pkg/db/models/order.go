package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is created only by checkout; totals are finalized before commit.
type Order struct {
	OrderID     string            `gorm:"column:order_id;primaryKey"`
	UserID      int64             `gorm:"column:user_id;not null;index"`
	AddressID   int64             `gorm:"column:address_id;not null"`
	TotalCount  int               `gorm:"column:total_count;not null;default:0"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Freight     decimal.Decimal   `gorm:"column:freight;type:numeric(10,2);not null"`
	PayMethod   enums.PayMethod   `gorm:"column:pay_method;not null"`
	Status      enums.OrderStatus `gorm:"column:status;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	Lines       []OrderLine       `gorm:"foreignKey:OrderID;references:OrderID"`
}
