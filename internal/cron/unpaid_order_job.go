package cron

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	unpaidOrderJobName = "unpaid-order-sweeper"
	defaultUnpaidTTL   = 24 * time.Hour
	defaultBatchSize   = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockRestocker interface {
	Restock(ctx context.Context, tx *gorm.DB, skuID int64, qty int) error
}

type itemCounter interface {
	AddItems(job string, n int)
}

// UnpaidOrderJobParams configure the unpaid order sweeper.
type UnpaidOrderJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Orders    orders.Repository
	Ledger    stockRestocker
	Notifier  notifications.Dispatcher
	Metrics   itemCounter
	UnpaidTTL time.Duration
	BatchSize int
}

// NewUnpaidOrderJob builds the job that cancels online orders left unpaid
// past the TTL and returns their units to stock.
func NewUnpaidOrderJob(params UnpaidOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	ttl := params.UnpaidTTL
	if ttl <= 0 {
		ttl = defaultUnpaidTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &unpaidOrderJob{
		logg:     params.Logger,
		db:       params.DB,
		orders:   params.Orders,
		ledger:   params.Ledger,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		ttl:      ttl,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type unpaidOrderJob struct {
	logg     *logger.Logger
	db       txRunner
	orders   orders.Repository
	ledger   stockRestocker
	notifier notifications.Dispatcher
	metrics  itemCounter
	ttl      time.Duration
	batch    int
	now      func() time.Time
}

func (j *unpaidOrderJob) Name() string { return unpaidOrderJobName }

// Run sweeps one batch. A failing order does not stop the rest; the errors
// are combined and the order is retried next cycle.
func (j *unpaidOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)
	stale, err := j.orders.FindByStatusBefore(ctx, enums.OrderStatusUnpaid, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query unpaid orders: %w", err)
	}

	var errs error
	canceled := 0
	for _, order := range stale {
		ok, err := j.cancel(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", order.OrderID, err))
			continue
		}
		if ok {
			canceled++
			j.notify(ctx, order)
		}
	}

	if j.metrics != nil {
		j.metrics.AddItems(unpaidOrderJobName, canceled)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"found": len(stale), "canceled": canceled})
	j.logg.Info(logCtx, "unpaid order sweep complete")
	return errs
}

// cancel flips the status first so a payment landing concurrently wins the
// race and the stock is left alone.
func (j *unpaidOrderJob) cancel(ctx context.Context, order models.Order) (bool, error) {
	canceled := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := j.orders.WithTx(tx).TransitionStatus(ctx, order.OrderID, enums.OrderStatusUnpaid, enums.OrderStatusCanceled)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		for _, line := range order.Lines {
			if err := j.ledger.Restock(ctx, tx, line.SKUID, line.Quantity); err != nil {
				return err
			}
		}
		canceled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return canceled, nil
}

func (j *unpaidOrderJob) notify(ctx context.Context, order models.Order) {
	j.notifier.Notify(j.logg.WithOrderID(ctx, order.OrderID), notifications.Notification{
		Channel:   enums.NotificationChannelOrder,
		Event:     notifications.EventOrderCanceled,
		Recipient: strconv.FormatInt(order.UserID, 10),
		Data: map[string]any{
			"order_id": order.OrderID,
			"reason":   "unpaid",
		},
	})
}
