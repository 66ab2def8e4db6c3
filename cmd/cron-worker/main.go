package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/cron"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const drainTimeout = 10 * time.Second

func main() {
	once := flag.Bool("once", false, "run a single locked cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg, *once); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger, once bool) (err error) {
	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	var (
		notifier notifications.Dispatcher = notifications.NewLogDispatcher(logg)
		drain    func(context.Context) error
	)
	if cfg.PubSub.Enabled() {
		psClient, psErr := pubsub.NewClient(ctx, cfg.PubSub, logg)
		if psErr != nil {
			return psErr
		}
		defer func() {
			err = multierr.Append(err, psClient.Close())
		}()
		dispatcher, dispatchErr := notifications.NewPubSubDispatcher(notifications.NewTopicPublisher(psClient.NotificationsPublisher()), logg)
		if dispatchErr != nil {
			return dispatchErr
		}
		notifier = dispatcher
		drain = dispatcher.Drain
	}

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	sweeper, err := cron.NewUnpaidOrderJob(cron.UnpaidOrderJobParams{
		Logger:    logg,
		DB:        dbClient,
		Orders:    orders.NewRepository(dbClient.DB()),
		Ledger:    inventory.NewLedger(dbClient.DB()),
		Notifier:  notifier,
		Metrics:   jobMetrics,
		UnpaidTTL: cfg.Sweeper.UnpaidTTL,
		BatchSize: cfg.Sweeper.BatchSize,
	})
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker", lockEnv(cfg.App.Env)), 0)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweeper),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Sweeper.Interval,
	})
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	sigCtx = logg.WithFields(sigCtx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
		"interval": cfg.Sweeper.Interval.String(),
	})
	logg.Info(sigCtx, "starting cron worker")

	var runErr error
	if once {
		runErr = service.RunOnce(sigCtx)
	} else {
		runErr = service.Run(sigCtx)
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	if drain != nil {
		drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
		defer cancel()
		runErr = multierr.Append(runErr, drain(drainCtx))
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return runErr
}

func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
