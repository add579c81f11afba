package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freshkart/freshkart-backend/api/controllers"
	"github.com/freshkart/freshkart-backend/api/middleware"
	cartsvc "github.com/freshkart/freshkart-backend/internal/cart"
	checkoutsvc "github.com/freshkart/freshkart-backend/internal/checkout"
	ordersvc "github.com/freshkart/freshkart-backend/internal/orders"
	walletsvc "github.com/freshkart/freshkart-backend/internal/wallet"
	"github.com/freshkart/freshkart-backend/pkg/config"
	"github.com/freshkart/freshkart-backend/pkg/db"
	"github.com/freshkart/freshkart-backend/pkg/logger"
	"github.com/freshkart/freshkart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
	ordersService ordersvc.Service,
	walletService walletsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutLimit,
	)
	verifyPolicy := middleware.NewRateLimitPolicy(
		"verify",
		cfg.RateLimit.VerifyWindow,
		cfg.RateLimit.VerifyLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Post("/", controllers.CartAdd(cartService, logg))
			r.Get("/count", controllers.CartCount(cartService, logg))
			r.Post("/merge", controllers.CartMerge(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Put("/{productId}", controllers.CartUpdateItem(cartService, logg))
			r.Patch("/{productId}/select", controllers.CartSelectItem(cartService, logg))
			r.Delete("/{productId}", controllers.CartRemoveItem(cartService, logg))
		})

		r.With(middleware.RateLimit(checkoutPolicy, redisClient, logg)).
			Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(ordersService, logg))
			r.With(middleware.RateLimit(verifyPolicy, redisClient, logg)).
				Post("/{orderId}/verify-payment", controllers.OrderVerifyPayment(ordersService, logg))
		})

		r.Get("/wallet", controllers.WalletBalance(walletService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(ordersService, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(ordersService, logg))
			r.Patch("/{orderId}", controllers.AdminOrderUpdate(ordersService, logg))
			r.Patch("/{orderId}/payment-status", controllers.AdminOrderUpdatePaymentStatus(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.AdminOrderCancel(ordersService, logg))
		})
	})

	return r
}
