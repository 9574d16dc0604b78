// Package expiry membereskan order PENDING yang ditinggal user: lewat
// timeout tanpa pembayaran -> cancel + kembalikan stok. Sweep jalan
// periodik dan sekali di startup (repair order yang kelewat saat restart).
package expiry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/orders"
)

type Store interface {
	ListExpiredPending(ctx context.Context, cutoff time.Time) ([]string, error)
	ExpireOrder(ctx context.Context, orderID string) (bool, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Sweeper struct {
	Store       Store
	Timeout     time.Duration // umur maksimum order PENDING
	Interval    time.Duration // jarak antar sweep
	Cancelled   Publisher
	ServiceName string
	Log         zerolog.Logger
}

// Run: satu kali recovery run langsung, lalu tick tiap Interval sampai ctx
// selesai.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx, "startup-recovery")

	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx, "scheduled")
		}
	}
}

// RunOnce menjalankan satu sweep dan melaporkan berapa order yang
// di-expire. Aman diulang kapanpun: ExpireOrder per order adalah no-op
// kalau order sudah resolved.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.Timeout)
	ids, err := s.Store.ListExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		applied, err := s.Store.ExpireOrder(ctx, id)
		if err != nil {
			// satu order rusak tidak boleh menghentikan sisanya
			s.Log.Error().Err(err).Str("order_id", id).Msg("expire order failed")
			continue
		}
		if !applied {
			// keburu dibayar / dibatalkan di antara select dan lock
			s.Log.Debug().Str("order_id", id).Msg("order already resolved, skip expire")
			continue
		}
		expired++
		s.Log.Info().Str("order_id", id).Msg("pending order expired, stock restored")
		s.publishCancelled(id)
	}
	return expired, nil
}

func (s *Sweeper) sweep(ctx context.Context, trigger string) {
	n, err := s.RunOnce(ctx)
	if err != nil {
		s.Log.Error().Err(err).Str("trigger", trigger).Msg("expiry sweep failed")
		return
	}
	if n > 0 {
		s.Log.Info().Str("trigger", trigger).Int("expired", n).Msg("expiry sweep done")
	}
}

func (s *Sweeper) publishCancelled(orderID string) {
	if s.Cancelled == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCancelled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.OrderCancelledPayload{
			OrderID:   orderID,
			Reason:    orders.CancelReasonExpired,
			Restocked: true,
		}),
	}
	s.Cancelled.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCancelled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
