package enums

import "fmt"

// OrderStatus tracks an order through fulfillment.
type OrderStatus string

const (
	OrderStatusUnpaid     OrderStatus = "unpaid"
	OrderStatusUnsend     OrderStatus = "unsend"
	OrderStatusUnreceived OrderStatus = "unreceived"
	OrderStatusUncomment  OrderStatus = "uncomment"
	OrderStatusFinished   OrderStatus = "finished"
	OrderStatusCanceled   OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusUnpaid,
	OrderStatusUnsend,
	OrderStatusUnreceived,
	OrderStatusUncomment,
	OrderStatusFinished,
	OrderStatusCanceled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
