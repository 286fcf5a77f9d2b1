package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
)

// OrderDTO is the API projection of an order. The arrival code is only
// exposed while the order is ready for pickup.
type OrderDTO struct {
	ID             uuid.UUID          `json:"id"`
	BusinessID     uuid.UUID          `json:"business_id"`
	CustomerID     uuid.UUID          `json:"customer_id"`
	Status         enums.OrderStatus  `json:"status"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	PickupTime     *time.Time         `json:"pickup_time,omitempty"`
	ArrivalCode    *string            `json:"arrival_code,omitempty"`
	Items          []OrderItemDTO     `json:"items"`
	ConfirmedAt    *time.Time         `json:"confirmed_at,omitempty"`
	ReadyAt        *time.Time         `json:"ready_at,omitempty"`
	PickedUpAt     *time.Time         `json:"picked_up_at,omitempty"`
	CancelledAt    *time.Time         `json:"cancelled_at,omitempty"`
	CancelledBy    *enums.CancelActor `json:"cancelled_by,omitempty"`
	NoShowAt       *time.Time         `json:"no_show_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// OrderItemDTO is one order line.
type OrderItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// NewOrderDTO maps an order row to its API shape.
func NewOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	items := make([]OrderItemDTO, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}
	dto := &OrderDTO{
		ID:             order.ID,
		BusinessID:     order.BusinessID,
		CustomerID:     order.CustomerID,
		Status:         order.Status,
		Subtotal:       order.Subtotal,
		DiscountAmount: order.DiscountAmount,
		TaxAmount:      order.TaxAmount,
		TotalAmount:    order.TotalAmount,
		PickupTime:     order.PickupTime,
		Items:          items,
		ConfirmedAt:    order.ConfirmedAt,
		ReadyAt:        order.ReadyAt,
		PickedUpAt:     order.PickedUpAt,
		CancelledAt:    order.CancelledAt,
		CancelledBy:    order.CancelledBy,
		NoShowAt:       order.NoShowAt,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
	if order.Status == enums.OrderStatusReadyForPickup {
		dto.ArrivalCode = order.ArrivalCode
	}
	return dto
}
