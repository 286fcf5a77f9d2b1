package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/viatura/viatura-backend/internal/availability"
	"github.com/viatura/viatura-backend/internal/bookings"
	"github.com/viatura/viatura-backend/internal/orders"
	"github.com/viatura/viatura-backend/internal/refunds"
	"github.com/viatura/viatura-backend/internal/stockledger"
	"github.com/viatura/viatura-backend/pkg/config"
	"github.com/viatura/viatura-backend/pkg/db"
	"github.com/viatura/viatura-backend/pkg/logger"
	"github.com/viatura/viatura-backend/pkg/pubsub"
	"github.com/viatura/viatura-backend/pkg/redis"
	"github.com/viatura/viatura-backend/pkg/square"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "refund-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "refund-worker"

	logg = logger.New(logger.Options{
		ServiceName: "refund-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	requireResource(ctx, logg, "square", err)

	stockService, err := stockledger.NewService(stockledger.NewRepository(dbClient.DB()), dbClient)
	requireResource(ctx, logg, "stock service", err)

	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, stockService)
	requireResource(ctx, logg, "order service", err)

	checker, err := availability.NewChecker(dbClient.DB())
	requireResource(ctx, logg, "availability checker", err)

	bookingService, err := bookings.NewService(bookings.NewRepository(dbClient.DB()), dbClient, checker)
	requireResource(ctx, logg, "booking service", err)

	gateway, err := refunds.NewSquareGateway(squareClient)
	requireResource(ctx, logg, "refund gateway", err)

	refundService, err := refunds.NewService(
		refunds.NewRepository(dbClient.DB()),
		dbClient,
		gateway,
		orderService,
		bookingService,
		cfg.Refunds,
	)
	requireResource(ctx, logg, "refund service", err)

	refundConsumer, err := refunds.NewConsumer(
		refundService,
		pubsubClient.RefundEventsSubscription(),
		redisClient,
		cfg.Refunds.IdempotencyTTL,
		logg,
	)
	requireResource(ctx, logg, "refund consumer", err)

	service, err := NewService(ServiceParams{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		PubSub:         pubsubClient,
		RefundConsumer: refundConsumer,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "refund worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "refund worker not working", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "refund worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
