package checkout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultMaxAttempts bounds how often one checkout replays its transaction.
const DefaultMaxAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	SelectedLines(ctx context.Context, userID int64) ([]cart.Line, error)
	Consume(ctx context.Context, userID int64, skuIDs []int64) error
}

type addressBook interface {
	Get(ctx context.Context, id, ownerID int64) (*models.Address, error)
}

type stockLedger interface {
	LockAndDecrement(ctx context.Context, tx *gorm.DB, skuID int64, qty int) (inventory.Reservation, error)
}

type skuLister interface {
	ListByIDs(ctx context.Context, ids []int64) ([]models.SKU, error)
}

// Service places orders and previews them.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	Settlement(ctx context.Context, userID int64) (*Settlement, error)
}

// PlaceOrderInput is everything the caller chooses; lines come from the
// server-side cart.
type PlaceOrderInput struct {
	UserID    int64
	AddressID int64
	PayMethod enums.PayMethod
}

// Deps wires the coordinator.
type Deps struct {
	Tx          txRunner
	Cart        cartStore
	Addresses   addressBook
	Ledger      stockLedger
	Orders      orders.Repository
	Catalog     skuLister
	Notifier    notifications.Dispatcher
	Metrics     *metrics.CheckoutMetrics
	Logger      *logger.Logger
	Freight     decimal.Decimal
	MaxAttempts int
	NewID       IDGenerator
	Now         func() time.Time
}

type service struct {
	tx          txRunner
	cart        cartStore
	addresses   addressBook
	ledger      stockLedger
	orders      orders.Repository
	catalog     skuLister
	notifier    notifications.Dispatcher
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
	freight     decimal.Decimal
	maxAttempts int
	newID       IDGenerator
	now         func() time.Time
}

// NewService builds the checkout service.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Cart == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if deps.Addresses == nil {
		return nil, fmt.Errorf("address book required")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Freight.IsNegative() {
		return nil, fmt.Errorf("freight must not be negative")
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = DefaultMaxAttempts
	}
	if deps.NewID == nil {
		deps.NewID = NewOrderID
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{
		tx:          deps.Tx,
		cart:        deps.Cart,
		addresses:   deps.Addresses,
		ledger:      deps.Ledger,
		orders:      deps.Orders,
		catalog:     deps.Catalog,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		logg:        deps.Logger,
		freight:     deps.Freight,
		maxAttempts: deps.MaxAttempts,
		newID:       deps.NewID,
		now:         deps.Now,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	started := time.Now()
	ctx = s.logg.WithUserID(ctx, input.UserID)

	order, err := s.placeOrder(ctx, input)
	s.metrics.Observe(resultLabel(err), time.Since(started))
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) placeOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if input.UserID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !input.PayMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pay method").
			WithDetails(map[string]any{"pay_method": string(input.PayMethod)})
	}
	if _, err := s.addresses.Get(ctx, input.AddressID, input.UserID); err != nil {
		return nil, err
	}

	lines, err := s.cart.SelectedLines(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "no selected cart lines")
	}
	lines = lockOrder(lines)

	var order *models.Order
	for attempt := 1; ; attempt++ {
		order, err = s.attempt(ctx, input, lines)
		if err == nil {
			break
		}
		if attempt >= s.maxAttempts || !replayable(err) {
			return nil, surface(err)
		}
		s.metrics.IncRetry()
		s.logg.WarnErr(s.logg.WithField(ctx, "attempt", attempt), "checkout.retry", err)
	}

	ctx = s.logg.WithOrderID(ctx, order.OrderID)
	s.afterCommit(ctx, order, lines)
	return order, nil
}

// attempt runs one transaction with a fresh order id. Any error rolls back
// the header, the lines and every decrement made so far.
func (s *service) attempt(ctx context.Context, input PlaceOrderInput, lines []cart.Line) (*models.Order, error) {
	order := &models.Order{
		OrderID:     s.newID(s.now(), input.UserID),
		UserID:      input.UserID,
		AddressID:   input.AddressID,
		TotalCount:  0,
		TotalAmount: decimal.Zero,
		Freight:     s.freight,
		PayMethod:   input.PayMethod,
		Status:      input.PayMethod.InitialStatus(),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		snapshot := make([]models.OrderLine, 0, len(lines))
		totalCount := 0
		totalAmount := decimal.Zero
		for _, line := range lines {
			res, err := s.ledger.LockAndDecrement(ctx, tx, line.SKUID, line.Quantity)
			if err != nil {
				return err
			}
			snapshot = append(snapshot, models.OrderLine{
				OrderID:   order.OrderID,
				SKUID:     line.SKUID,
				Quantity:  line.Quantity,
				UnitPrice: res.UnitPrice,
			})
			totalCount += line.Quantity
			totalAmount = totalAmount.Add(res.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		if err := repo.CreateLines(ctx, snapshot); err != nil {
			return err
		}

		totalAmount = totalAmount.Add(s.freight)
		if err := repo.UpdateTotals(ctx, order.OrderID, totalCount, totalAmount); err != nil {
			return err
		}
		order.TotalCount = totalCount
		order.TotalAmount = totalAmount
		order.Lines = snapshot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// afterCommit runs once the order is durable; nothing here can fail the checkout.
func (s *service) afterCommit(ctx context.Context, order *models.Order, lines []cart.Line) {
	ctx = context.WithoutCancel(ctx)

	skuIDs := make([]int64, 0, len(lines))
	for _, line := range lines {
		skuIDs = append(skuIDs, line.SKUID)
	}
	if err := s.cart.Consume(ctx, order.UserID, skuIDs); err != nil {
		s.logg.WarnErr(ctx, "checkout.cart_cleanup_failed", err)
	}

	s.notifier.Notify(ctx, notifications.Notification{
		Channel:   enums.NotificationChannelOrder,
		Event:     notifications.EventOrderPlaced,
		Recipient: fmt.Sprintf("%d", order.UserID),
		Data: map[string]any{
			"order_id":     order.OrderID,
			"total_count":  order.TotalCount,
			"total_amount": order.TotalAmount.StringFixed(2),
			"pay_method":   string(order.PayMethod),
		},
	})

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"total_count":  order.TotalCount,
		"total_amount": order.TotalAmount.StringFixed(2),
	}), "checkout.order_placed")
}

// lockOrder sorts a copy of the lines by sku id so concurrent checkouts
// sharing skus always acquire row locks in the same order.
func lockOrder(lines []cart.Line) []cart.Line {
	ordered := append([]cart.Line(nil), lines...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SKUID < ordered[j].SKUID })
	return ordered
}

// replayable is true for order id collisions, deadlocks and serialization
// failures. Typed errors, OUT_OF_STOCK included, are final.
func replayable(err error) bool {
	if pkgerrors.As(err) != nil {
		return false
	}
	return pkgdb.IsUniqueViolation(err, "") || pkgdb.IsRetryable(err)
}

func surface(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order could not be placed")
}

func resultLabel(err error) string {
	if err == nil {
		return metrics.ResultPlaced
	}
	switch pkgerrors.As(err).Code() {
	case pkgerrors.CodeOutOfStock:
		return metrics.ResultOutOfStock
	case pkgerrors.CodeEmptyCart:
		return metrics.ResultEmptyCart
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeForbidden, pkgerrors.CodeUnauthorized:
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}
