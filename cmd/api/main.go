package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/freshkart/freshkart-backend/api/routes"
	"github.com/freshkart/freshkart-backend/internal/cart"
	"github.com/freshkart/freshkart-backend/internal/checkout"
	"github.com/freshkart/freshkart-backend/internal/inventory"
	"github.com/freshkart/freshkart-backend/internal/notifications"
	"github.com/freshkart/freshkart-backend/internal/orders"
	"github.com/freshkart/freshkart-backend/internal/pricing"
	"github.com/freshkart/freshkart-backend/internal/wallet"
	"github.com/freshkart/freshkart-backend/pkg/config"
	"github.com/freshkart/freshkart-backend/pkg/db"
	"github.com/freshkart/freshkart-backend/pkg/logger"
	"github.com/freshkart/freshkart-backend/pkg/metrics"
	"github.com/freshkart/freshkart-backend/pkg/migrate"
	"github.com/freshkart/freshkart-backend/pkg/razorpay"
	"github.com/freshkart/freshkart-backend/pkg/redis"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	razorpayClient, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
	notifier := notifications.NewDispatcher(notifications.NewLogSender(logg), logg)

	cartRepo := cart.NewRepo(dbClient.DB())
	orderRepo := orders.NewRepo(dbClient.DB())
	pricer := pricing.NewEngine(
		cfg.Checkout.FreeDeliveryThresholdAmount(),
		cfg.Checkout.DeliveryChargeAmount(),
	)
	walletLedger := wallet.NewLedger()
	stockLedger := inventory.NewLedger()

	cartService, err := cart.NewService(
		cartRepo,
		dbClient,
		logg,
		cfg.Checkout.FreeDeliveryThresholdAmount(),
		cfg.Checkout.DeliveryChargeAmount(),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		dbClient,
		cartRepo,
		orderRepo,
		pricer,
		walletLedger,
		stockLedger,
		razorpayClient,
		notifier,
		checkoutMetrics,
		logg,
		cfg.Checkout.MinGatewayChargeAmount(),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(
		dbClient,
		orderRepo,
		cartRepo,
		stockLedger,
		walletLedger,
		razorpayClient,
		notifier,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(dbClient.DB(), walletLedger)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			cartService,
			checkoutService,
			ordersService,
			walletService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
