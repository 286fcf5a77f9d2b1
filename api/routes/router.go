package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/viatura/viatura-backend/api/controllers"
	webhookcontrollers "github.com/viatura/viatura-backend/api/controllers/webhooks"
	"github.com/viatura/viatura-backend/api/middleware"
	"github.com/viatura/viatura-backend/internal/availability"
	"github.com/viatura/viatura-backend/internal/bookings"
	"github.com/viatura/viatura-backend/internal/orders"
	"github.com/viatura/viatura-backend/internal/refunds"
	"github.com/viatura/viatura-backend/internal/rooms"
	"github.com/viatura/viatura-backend/internal/stockledger"
	"github.com/viatura/viatura-backend/pkg/config"
	"github.com/viatura/viatura-backend/pkg/db"
	"github.com/viatura/viatura-backend/pkg/logger"
	"github.com/viatura/viatura-backend/pkg/redis"
	"github.com/viatura/viatura-backend/pkg/square"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	stockService stockledger.Service,
	roomService rooms.Service,
	checker availability.Checker,
	bookingService bookings.Service,
	orderService orders.Service,
	refundService refunds.Service,
	squareClient *square.Client,
	refundGuard *refunds.IdempotencyGuard,
) http.Handler {
	// Avoid handing consumers a typed-nil interface when redis is absent.
	var idemStore redis.IdempotencyStore
	var cachePinger db.Pinger
	if redisClient != nil {
		idemStore = redisClient
		cachePinger = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cachePinger))
	})

	webhookPolicy := middleware.NewRateLimitPolicy(
		"webhook",
		cfg.RateLimit.WebhookWindow,
		cfg.RateLimit.WebhookIPLimit,
	)
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		if redisClient != nil {
			r.Use(middleware.RateLimit(webhookPolicy, redisClient, logg))
		}
		r.Post("/refunds", webhookcontrollers.RefundEvents(refundService, squareClient, refundGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ActorContext(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Post("/rooms", controllers.CreateRoom(roomService, logg))
		r.Get("/rooms", controllers.ListRooms(roomService, logg))
		r.Get("/rooms/{roomId}", controllers.GetRoom(roomService, logg))
		r.Get("/rooms/{roomId}/availability", controllers.RoomAvailability(checker, logg))
		r.Get("/rooms/{roomId}/status", controllers.RoomStatus(roomService, logg))
		r.Post("/rooms/{roomId}/blocks", controllers.CreateBlock(roomService, logg))
		r.Delete("/rooms/blocks/{blockId}", controllers.CancelBlock(roomService, logg))

		r.Post("/bookings", controllers.CreateBooking(bookingService, logg))
		r.Get("/bookings/{bookingId}", controllers.GetBooking(bookingService, logg))
		r.Post("/bookings/{bookingId}/accept", controllers.AcceptBooking(bookingService, logg))
		r.Post("/bookings/{bookingId}/arrival", controllers.ConfirmArrival(bookingService, logg))
		r.Post("/bookings/{bookingId}/cancel", controllers.CancelBooking(bookingService, logg))

		r.Post("/orders", controllers.PlaceOrder(orderService, logg))
		r.Get("/orders/{orderId}", controllers.GetOrder(orderService, logg))
		r.Post("/orders/{orderId}/accept", controllers.AcceptOrder(orderService, logg))
		r.Post("/orders/{orderId}/prepare", controllers.PrepareOrder(orderService, logg))
		r.Post("/orders/{orderId}/ready", controllers.ReadyOrder(orderService, logg))
		r.Post("/orders/{orderId}/pickup", controllers.PickupOrder(orderService, logg))
		r.Post("/orders/{orderId}/cancel", controllers.CancelOrder(orderService, logg))

		r.Post("/products/{productId}/stock", controllers.AdjustStock(stockService, logg))
		r.Get("/products/{productId}/stock", controllers.GetStock(stockService, logg))
		r.Post("/products/{productId}/stock/initialize", controllers.InitializeStock(stockService, logg))
		r.Get("/products/{productId}/stock/history", controllers.StockHistory(stockService, logg))
		r.Get("/products/{productId}/stock/reconciliation", controllers.ReconcileStock(stockService, logg))

		r.Post("/refunds", controllers.RequestRefund(refundService, logg))
		r.Get("/refunds/{refundId}", controllers.GetRefund(refundService, logg))
		r.Post("/refunds/{refundId}/submit", controllers.SubmitRefund(refundService, logg))
		r.Post("/refunds/{refundId}/cancel", controllers.CancelRefund(refundService, logg))
	})

	return r
}
