package enums

import (
	"fmt"
	"strings"
)

// PayMethod records how the buyer intends to pay. It is stored, never processed.
type PayMethod string

const (
	PayMethodCash   PayMethod = "cash"
	PayMethodOnline PayMethod = "online"
)

var validPayMethods = []PayMethod{
	PayMethodCash,
	PayMethodOnline,
}

// String implements fmt.Stringer.
func (p PayMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PayMethod.
func (p PayMethod) IsValid() bool {
	for _, candidate := range validPayMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// InitialStatus is the status a freshly placed order starts in: cash orders go
// straight to fulfillment, everything else waits for payment.
func (p PayMethod) InitialStatus() OrderStatus {
	if p == PayMethodCash {
		return OrderStatusUnsend
	}
	return OrderStatusUnpaid
}

// ParsePayMethod converts raw input into a PayMethod.
func ParsePayMethod(value string) (PayMethod, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPayMethods {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pay method %q", value)
}
