package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// OrderLineDTO is an order line as shown to its owner.
type OrderLineDTO struct {
	SKUID     int64           `json:"sku_id"`
	Count     int             `json:"count"`
	UnitPrice decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
}

// OrderDTO is the owner-facing order representation.
type OrderDTO struct {
	OrderID     string            `json:"order_id"`
	AddressID   int64             `json:"address_id"`
	TotalCount  int               `json:"total_count"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Freight     decimal.Decimal   `json:"freight"`
	PayMethod   enums.PayMethod   `json:"pay_method"`
	Status      enums.OrderStatus `json:"status"`
	CreatedAt   time.Time         `json:"create_time"`
	Lines       []OrderLineDTO    `json:"skus"`
}

// FromModel maps a persisted order, with its lines, to the DTO.
func FromModel(order models.Order) OrderDTO {
	dto := OrderDTO{
		OrderID:     order.OrderID,
		AddressID:   order.AddressID,
		TotalCount:  order.TotalCount,
		TotalAmount: order.TotalAmount,
		Freight:     order.Freight,
		PayMethod:   order.PayMethod,
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
		Lines:       make([]OrderLineDTO, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		dto.Lines = append(dto.Lines, OrderLineDTO{
			SKUID:     line.SKUID,
			Count:     line.Quantity,
			UnitPrice: line.UnitPrice,
			Amount:    line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return dto
}
