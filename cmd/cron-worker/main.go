package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/viatura/viatura-backend/internal/availability"
	"github.com/viatura/viatura-backend/internal/bookings"
	"github.com/viatura/viatura-backend/internal/cron"
	"github.com/viatura/viatura-backend/internal/orders"
	"github.com/viatura/viatura-backend/internal/refunds"
	"github.com/viatura/viatura-backend/internal/stockledger"
	"github.com/viatura/viatura-backend/pkg/config"
	"github.com/viatura/viatura-backend/pkg/db"
	"github.com/viatura/viatura-backend/pkg/logger"
	"github.com/viatura/viatura-backend/pkg/metrics"
	"github.com/viatura/viatura-backend/pkg/migrate"
	"github.com/viatura/viatura-backend/pkg/redis"
	"github.com/viatura/viatura-backend/pkg/square"
)

const lockKeyFormat = "vt:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}

	refundService, orderService, bookingService, err := buildServices(dbClient, squareClient, cfg)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	refundJob, err := cron.NewRefundJob(cron.RefundJobParams{
		Logger:  logg,
		Refunds: refundService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refund job", err)
		os.Exit(1)
	}

	arrivalJob, err := cron.NewArrivalCodeJob(cron.ArrivalCodeJobParams{
		Logger:   logg,
		Orders:   orderService,
		Bookings: bookingService,
		TTL:      cfg.Orders.ArrivalCodeTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create arrival code job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(refundJob, arrivalJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildServices(dbClient *db.Client, squareClient *square.Client, cfg *config.Config) (refunds.Service, orders.Service, bookings.Service, error) {
	stockService, err := stockledger.NewService(stockledger.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		return nil, nil, nil, err
	}
	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, stockService)
	if err != nil {
		return nil, nil, nil, err
	}
	checker, err := availability.NewChecker(dbClient.DB())
	if err != nil {
		return nil, nil, nil, err
	}
	bookingService, err := bookings.NewService(bookings.NewRepository(dbClient.DB()), dbClient, checker)
	if err != nil {
		return nil, nil, nil, err
	}
	gateway, err := refunds.NewSquareGateway(squareClient)
	if err != nil {
		return nil, nil, nil, err
	}
	refundService, err := refunds.NewService(
		refunds.NewRepository(dbClient.DB()),
		dbClient,
		gateway,
		orderService,
		bookingService,
		cfg.Refunds,
	)
	if err != nil {
		return nil, nil, nil, err
	}
	return refundService, orderService, bookingService, nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
