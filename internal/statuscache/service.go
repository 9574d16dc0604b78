// Package statuscache adalah read-model kecil: consumer event order yang
// menjaga cache status di Redis tetap hangat, supaya GET status order tidak
// selalu turun ke Postgres.
package statuscache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/orders"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
)

type Service struct {
	Redis       *redis.Client
	ServiceName string
	Log         zerolog.Logger
}

type cachedStatus struct {
	Status        orders.Status        `json:"status"`
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
}

// HandleEvent dipasang sebagai handler consumer untuk semua topic order.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.CorrelationID == "" {
		return nil // bukan event order
	}

	// dedup via event_id; consumer group bisa redeliver
	dkey := fmt.Sprintf(redisx.KeyEventDedup, s.ServiceName, env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}

	var cs cachedStatus
	switch env.EventType {
	case orders.EventOrderCreated:
		cs = cachedStatus{Status: orders.StatusPending, PaymentStatus: orders.PaymentPending}
	case orders.EventOrderPaid:
		cs = cachedStatus{Status: orders.StatusConfirmed, PaymentStatus: orders.PaymentPaid}
	case orders.EventOrderCancelled:
		cs = cachedStatus{Status: orders.StatusCancelled, PaymentStatus: orders.PaymentFailed}
	default:
		return nil // ignore
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, env.CorrelationID)
	b, _ := json.Marshal(cs)
	if err := s.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err(); err != nil {
		return err
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLEventDedup).Err()

	s.Log.Debug().Str("order_id", env.CorrelationID).Str("event", env.EventType).
		Msg("status cache updated")
	return nil
}
