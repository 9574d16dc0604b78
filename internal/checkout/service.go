// Package checkout menjalankan alur pembuatan order: validasi cart, cek &
// potong stok, hitung total + ongkir, simpan order, kosongkan cart.
package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/orders"
)

// Berapa kali regenerate kode order kalau kebetulan tabrakan unique.
const maxCodeRetries = 3

type OrderStore interface {
	PlaceOrder(ctx context.Context, p orders.PlaceOrderParams) (*orders.Order, error)
	CancelOrder(ctx context.Context, orderID, userID string) (*orders.Order, error)
}

type CartStore interface {
	CartLines(ctx context.Context, userID string) ([]orders.CartLine, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Orders      OrderStore
	Carts       CartStore
	Created     Publisher
	Cancelled   Publisher
	Shipping    orders.ShippingPolicy
	ServiceName string
	Log         zerolog.Logger
}

// CreateOrder: §checkout. Seluruh validasi + mutasi persist dilakukan repo
// dalam satu transaksi; di sini tinggal orkestrasi cart, kode order, dan
// event.
func (s *Service) CreateOrder(ctx context.Context, userID string, addr orders.ShippingAddress) (*orders.Order, error) {
	lines, err := s.Carts.CartLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, orders.ErrEmptyCart
	}
	for _, l := range lines {
		if l.Qty <= 0 {
			return nil, orders.ErrInvalidQuantity
		}
	}

	var ord *orders.Order
	for attempt := 0; ; attempt++ {
		ord, err = s.Orders.PlaceOrder(ctx, orders.PlaceOrderParams{
			UserID:   userID,
			Code:     orders.NewOrderCode(),
			Address:  addr,
			Lines:    lines,
			Shipping: s.Shipping,
		})
		if err == nil {
			break
		}
		// tabrakan kode -> regenerate & ulang, jangan gagalkan checkout
		if orders.IsCodeCollision(err) && attempt < maxCodeRetries {
			s.Log.Warn().Int("attempt", attempt+1).Msg("order code collision, retrying")
			continue
		}
		return nil, err
	}

	items := make([]orders.EventItem, 0, len(ord.Items))
	for _, it := range ord.Items {
		ev := orders.EventItem{Name: it.ProductName, Size: it.Size, Qty: it.Qty, Price: it.Price}
		if it.ProductID != nil {
			ev.ProductID = *it.ProductID
		}
		items = append(items, ev)
	}
	s.publish(s.Created, orders.EventOrderCreated, ord.ID, orders.OrderCreatedPayload{
		OrderID:     ord.ID,
		Code:        ord.Code,
		UserID:      ord.UserID,
		Items:       items,
		TotalAmount: ord.TotalAmount,
		ShippingFee: ord.ShippingFee,
	})

	s.Log.Info().Str("order_id", ord.ID).Str("code", ord.Code).
		Str("total", ord.TotalAmount.String()).Int("items", len(ord.Items)).
		Msg("order placed")
	return ord, nil
}

// CancelOrder: cancel eksplisit user, hanya untuk order yang masih PENDING.
func (s *Service) CancelOrder(ctx context.Context, orderID, userID string) (*orders.Order, error) {
	ord, err := s.Orders.CancelOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	s.publish(s.Cancelled, orders.EventOrderCancelled, ord.ID, orders.OrderCancelledPayload{
		OrderID:   ord.ID,
		Code:      ord.Code,
		Reason:    orders.CancelReasonUserCancelled,
		Restocked: true,
	})
	s.Log.Info().Str("order_id", ord.ID).Msg("order cancelled by user")
	return ord, nil
}

func (s *Service) publish(pub Publisher, eventType, orderID string, payload any) {
	if pub == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	pub.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
