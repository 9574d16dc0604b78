// Package payment memegang dua sisi integrasi provider: minta payment link
// dan memproses webhook hasil pembayaran. Webhook adalah input untrusted
// yang bisa duplikat dan out-of-order; semua side effect dijaga idempotency
// gate di storage.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/orders"
	"github.com/ariefcatur/go-shop-checkout.git/internal/payos"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
)

type OrderStore interface {
	OrderByID(ctx context.Context, orderID string) (*orders.Order, error)
	ConfirmPayment(ctx context.Context, orderID string, providerPayload []byte) (bool, error)
	FailPayment(ctx context.Context, orderID string, providerPayload []byte) (bool, error)
}

type TxStore interface {
	CreateTransaction(ctx context.Context, t *orders.PaymentTransaction) error
	TransactionByOrderID(ctx context.Context, orderID string) (*orders.PaymentTransaction, error)
	TransactionByCode(ctx context.Context, code string) (*orders.PaymentTransaction, error)
}

type Provider interface {
	CreateLink(ctx context.Context, req payos.LinkRequest) (*payos.LinkData, error)
	VerifyWebhook(raw []byte) (*payos.WebhookPayload, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Orders   OrderStore
	Txs      TxStore
	Provider Provider
	// Fast path dedup webhook; boleh nil, Postgres tetap sumber kebenaran.
	Redis       *redis.Client
	Paid        Publisher
	Cancelled   Publisher
	ReturnURL   string
	CancelURL   string
	ServiceName string
	Log         zerolog.Logger
}

type Link struct {
	URL             string
	TransactionCode string
}

// CreatePaymentLink: idempotent terhadap transaksi PENDING yang sudah ada —
// user buka ulang halaman checkout tidak boleh bikin payment intent kedua.
func (s *Service) CreatePaymentLink(ctx context.Context, orderID string) (*Link, error) {
	ord, err := s.Orders.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.PaymentStatus == orders.PaymentPaid {
		return nil, orders.ErrAlreadyPaid
	}

	existing, err := s.Txs.TransactionByOrderID(ctx, orderID)
	switch {
	case err == nil:
		if existing.Status == orders.TxPending && existing.PaymentURL != "" {
			return &Link{URL: existing.PaymentURL, TransactionCode: existing.TransactionCode}, nil
		}
		return nil, orders.ErrTxAlreadyExists
	case !errors.Is(err, orders.ErrTxNotFound):
		return nil, err
	}

	amount := ord.TotalAmount.Add(ord.ShippingFee).Sub(ord.DiscountValue)
	items := make([]payos.LinkItem, 0, len(ord.Items))
	for _, it := range ord.Items {
		name := it.ProductName
		if it.Size != "" {
			name = name + " (" + it.Size + ")"
		}
		items = append(items, payos.LinkItem{
			Name:     name,
			Quantity: it.Qty,
			Price:    it.Price.Round(0).IntPart(),
		})
	}

	data, err := s.Provider.CreateLink(ctx, payos.LinkRequest{
		OrderCode:   orders.ProviderOrderCode(ord.Code),
		Amount:      amount.Round(0).IntPart(),
		Description: "TT " + ord.Code, // provider batasi deskripsi pendek
		Items:       items,
		ReturnURL:   s.ReturnURL,
		CancelURL:   s.CancelURL,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Txs.CreateTransaction(ctx, &orders.PaymentTransaction{
		OrderID:         orderID,
		TransactionCode: data.PaymentLinkID,
		Amount:          amount,
		Status:          orders.TxPending,
		PaymentURL:      data.CheckoutURL,
	}); err != nil {
		return nil, err
	}

	s.Log.Info().Str("order_id", orderID).Str("transaction_code", data.PaymentLinkID).
		Msg("payment link issued")
	return &Link{URL: data.CheckoutURL, TransactionCode: data.PaymentLinkID}, nil
}

// HandleWebhook memproses satu delivery. Error yang dikembalikan untuk
// logging internal; layer HTTP tetap ack sukses ke provider supaya tidak
// di-retry-storm (lihat httpx).
func (s *Service) HandleWebhook(ctx context.Context, raw []byte) error {
	payload, err := s.Provider.VerifyWebhook(raw)
	if err != nil {
		// health-check provider datang tanpa transaksi sungguhan; jangan
		// diperlakukan sebagai serangan
		if payload != nil && payload.IsConnectivityProbe() {
			s.Log.Debug().Msg("webhook connectivity probe accepted")
			return nil
		}
		s.Log.Error().Err(err).Bool("security_event", true).Msg("webhook rejected: bad signature")
		return fmt.Errorf("%w: %v", orders.ErrInvalidSignature, err)
	}
	if payload.IsConnectivityProbe() {
		s.Log.Debug().Msg("webhook connectivity probe accepted")
		return nil
	}

	code := payload.Data.PaymentLinkID

	// fast path: delivery yang sudah pernah diapply
	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyWebhookDedup, code)
		if ok, _ := redisx.Exists(ctx, s.Redis, dkey); ok {
			return nil
		}
	}

	tx, err := s.Txs.TransactionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, orders.ErrTxNotFound) {
			s.Log.Error().Str("transaction_code", code).Msg("webhook for unknown transaction")
			return orders.ErrTxNotFound
		}
		return err
	}

	// idempotency gate: duplicate delivery adalah kasus normal webhook
	if tx.Status == orders.TxPaid {
		s.Log.Debug().Str("transaction_code", code).Msg("webhook duplicate for paid transaction, no-op")
		return nil
	}

	if payload.IsPaid() {
		applied, err := s.Orders.ConfirmPayment(ctx, tx.OrderID, payload.Raw)
		if err != nil {
			return fmt.Errorf("confirm payment for order %s: %w", tx.OrderID, err)
		}
		if applied {
			orderCode := ""
			if ord, oerr := s.Orders.OrderByID(ctx, tx.OrderID); oerr == nil {
				orderCode = ord.Code
			}
			s.publish(s.Paid, orders.EventOrderPaid, tx.OrderID, orders.OrderPaidPayload{
				OrderID:         tx.OrderID,
				Code:            orderCode,
				TransactionCode: code,
				Amount:          tx.Amount,
			})
			s.Log.Info().Str("order_id", tx.OrderID).Str("transaction_code", code).
				Msg("payment confirmed")
		}
		s.markProcessed(ctx, code)
		return nil
	}

	applied, err := s.Orders.FailPayment(ctx, tx.OrderID, payload.Raw)
	if err != nil {
		return fmt.Errorf("fail payment for order %s: %w", tx.OrderID, err)
	}
	if applied {
		s.publish(s.Cancelled, orders.EventOrderCancelled, tx.OrderID, orders.OrderCancelledPayload{
			OrderID:   tx.OrderID,
			Reason:    orders.CancelReasonPaymentFailed,
			Restocked: true,
		})
		s.Log.Info().Str("order_id", tx.OrderID).Str("transaction_code", code).
			Str("provider_code", payload.Data.Code).Msg("payment failed, order cancelled")
	}
	s.markProcessed(ctx, code)
	return nil
}

func (s *Service) markProcessed(ctx context.Context, code string) {
	if s.Redis == nil {
		return
	}
	dkey := fmt.Sprintf(redisx.KeyWebhookDedup, code)
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLWebhookDedup).Err()
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
