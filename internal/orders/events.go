package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderPaid      = "OrderPaid"
	EventOrderCancelled = "OrderCancelled"
)

// Alasan pembatalan di payload OrderCancelled.
const (
	CancelReasonPaymentFailed = "PAYMENT_FAILED"
	CancelReasonExpired       = "EXPIRED"
	CancelReasonUserCancelled = "USER_CANCELLED"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type EventItem struct {
	ProductID string          `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	Size      string          `json:"size,omitempty"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID     string          `json:"order_id"`
	Code        string          `json:"code"`
	UserID      string          `json:"user_id"`
	Items       []EventItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
}

type OrderPaidPayload struct {
	OrderID         string          `json:"order_id"`
	Code            string          `json:"code"`
	TransactionCode string          `json:"transaction_code"`
	Amount          decimal.Decimal `json:"amount"`
}

type OrderCancelledPayload struct {
	OrderID   string `json:"order_id"`
	Code      string `json:"code,omitempty"` // kosong dari jalur webhook/expiry
	Reason    string `json:"reason"`
	Restocked bool   `json:"restocked"`
}
