package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/internal/verifications"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// SessionManager checks and revokes access tokens.
type SessionManager interface {
	session.AccessSessionChecker
	session.Revoker
}

// Services bundles everything the HTTP surface calls into.
type Services struct {
	Auth          auth.Service
	Register      auth.RegisterService
	Users         users.Service
	Verifications verifications.Service
	Catalog       catalog.Service
	History       catalog.History
	Cart          cart.Service
	Addresses     address.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
}

// Infra carries the clients the router needs directly.
type Infra struct {
	DB       controllers.Pinger
	Redis    *redis.Client
	PubSub   controllers.Pinger
	Sessions SessionManager
	Metrics  prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginAcctLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		0,
	)
	cartCookie := cartcontrollers.NewCookie(cfg.Cart)

	readyDeps := map[string]controllers.Pinger{"db": infra.DB}
	if infra.Redis != nil {
		readyDeps["redis"] = infra.Redis
	}
	if infra.PubSub != nil {
		readyDeps["pubsub"] = infra.PubSub
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})
	if infra.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(infra.Metrics, promhttp.HandlerOpts{}))
	}

	idempotency := middleware.Idempotency(infra.Redis, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, infra.Redis, logg)).
				Post("/login", controllers.AuthLogin(svc.Auth, svc.Cart, cartCookie, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, infra.Redis, logg), idempotency).
				Post("/register", controllers.AuthRegister(svc.Register, logg))
			r.With(middleware.Auth(cfg.JWT, infra.Sessions, logg)).
				Post("/logout", controllers.AuthLogout(infra.Sessions, logg))
		})

		r.Get("/usernames/{username}/count", controllers.UsernameCount(svc.Users, logg))
		r.Get("/mobiles/{mobile}/count", controllers.MobileCount(svc.Users, logg))
		r.Get("/sms_codes/{mobile}", controllers.SMSCodeSend(svc.Verifications, logg))
		r.Put("/emails/verification", controllers.EmailVerify(svc.Users, logg))

		r.Get("/categories/{categoryId}/skus", controllers.CategorySKUs(svc.Catalog, logg))
		r.Get("/skus/{skuId}", controllers.SKUDetail(svc.Catalog, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, infra.Sessions, logg))
			r.Get("/", cartcontrollers.CartFetch(svc.Cart, cartCookie, logg))
			r.Post("/", cartcontrollers.CartAdd(svc.Cart, cartCookie, logg))
			r.Put("/", cartcontrollers.CartUpdate(svc.Cart, cartCookie, logg))
			r.Delete("/", cartcontrollers.CartRemove(svc.Cart, cartCookie, logg))
			r.Put("/selection", cartcontrollers.CartSelectAll(svc.Cart, cartCookie, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, infra.Sessions, logg))
			r.Use(idempotency)

			r.Get("/user", controllers.UserProfile(svc.Users, logg))
			r.Put("/user/email", controllers.UserSetEmail(svc.Users, logg))

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(svc.Addresses, logg))
				r.Post("/", controllers.AddressCreate(svc.Addresses, logg))
				r.Put("/{addressId}", controllers.AddressUpdate(svc.Addresses, logg))
				r.Delete("/{addressId}", controllers.AddressDelete(svc.Addresses, logg))
				r.Put("/{addressId}/status", controllers.AddressSetDefault(svc.Addresses, logg))
				r.Put("/{addressId}/title", controllers.AddressTitle(svc.Addresses, logg))
			})

			r.Route("/browse_histories", func(r chi.Router) {
				r.Get("/", controllers.BrowseHistoryList(svc.History, logg))
				r.Post("/", controllers.BrowseHistoryRecord(svc.History, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/settlement", ordercontrollers.Settlement(svc.Checkout, logg))
				r.Post("/", ordercontrollers.Place(svc.Checkout, logg))
				r.Get("/", ordercontrollers.List(svc.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(svc.Orders, logg))
			})
		})
	})

	return r
}
