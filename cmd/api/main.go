package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/internal/verifications"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api exited with error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
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

	sessionManager, err := session.NewManager(redisClient)
	if err != nil {
		return err
	}

	var (
		notifier notifications.Dispatcher = notifications.NewLogDispatcher(logg)
		drain    func(context.Context) error
		topic    controllers.Pinger
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
		topic = psClient
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	services, err := buildServices(cfg, logg, dbClient, redisClient, notifier, metrics.NewCheckoutMetrics(registry))
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Infra{
			DB:       dbClient,
			Redis:    redisClient,
			PubSub:   topic,
			Sessions: sessionManager,
			Metrics:  registry,
		}, *services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		logg.Info(logCtx, "shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	if drain != nil {
		shutdownErr = multierr.Append(shutdownErr, drain(shutdownCtx))
	}
	logg.Info(logCtx, "api server stopped")
	return shutdownErr
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	notifier notifications.Dispatcher,
	checkoutMetrics *metrics.CheckoutMetrics,
) (*routes.Services, error) {
	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}

	historyService, err := catalog.NewHistory(redisClient, catalogService)
	if err != nil {
		return nil, err
	}

	codec, err := cart.NewCookieCodec(cfg.Cart.SigningSecret(cfg.JWT), cfg.Cart.CookieTTL)
	if err != nil {
		return nil, err
	}
	cartService, err := cart.NewService(redisClient, codec, catalogService, logg)
	if err != nil {
		return nil, err
	}

	addressService, err := address.NewService(address.NewRepository(dbClient.DB()), dbClient, address.WithLimit(cfg.Verification.AddressLimit))
	if err != nil {
		return nil, err
	}

	verificationService, err := verifications.NewService(redisClient, notifier, logg, cfg.Verification.SMSCodeTTL, cfg.Verification.SMSResendWindow)
	if err != nil {
		return nil, err
	}

	userRepo := users.NewRepository(dbClient.DB())
	userService, err := users.NewService(users.ServiceParams{
		Repo:         userRepo,
		Notifier:     notifier,
		JWTConfig:    cfg.JWT,
		Verification: cfg.Verification,
	})
	if err != nil {
		return nil, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return nil, err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		SMS:            verificationService,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return nil, err
	}

	freight, err := cfg.Checkout.FreightAmount()
	if err != nil {
		return nil, err
	}
	ordersRepo := orders.NewRepository(dbClient.DB())
	checkoutService, err := checkout.NewService(checkout.Deps{
		Tx:          dbClient,
		Cart:        cartService,
		Addresses:   addressService,
		Ledger:      inventory.NewLedger(dbClient.DB()),
		Orders:      ordersRepo,
		Catalog:     catalogService,
		Notifier:    notifier,
		Metrics:     checkoutMetrics,
		Logger:      logg,
		Freight:     freight,
		MaxAttempts: cfg.Checkout.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		return nil, err
	}

	return &routes.Services{
		Auth:          authService,
		Register:      registerService,
		Users:         userService,
		Verifications: verificationService,
		Catalog:       catalogService,
		History:       historyService,
		Cart:          cartService,
		Addresses:     addressService,
		Checkout:      checkoutService,
		Orders:        ordersService,
	}, nil
}
