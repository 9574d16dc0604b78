package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-checkout.git/internal/orders"
)

type MockOrderStore struct{ mock.Mock }

func (m *MockOrderStore) PlaceOrder(ctx context.Context, p orders.PlaceOrderParams) (*orders.Order, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

func (m *MockOrderStore) CancelOrder(ctx context.Context, orderID, userID string) (*orders.Order, error) {
	args := m.Called(ctx, orderID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

type MockCartStore struct{ mock.Mock }

func (m *MockCartStore) CartLines(ctx context.Context, userID string) ([]orders.CartLine, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orders.CartLine), args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	m.Called(key, value, headers)
}

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func newService(os *MockOrderStore, cs *MockCartStore, created, cancelled *MockPublisher) *Service {
	return &Service{
		Orders:      os,
		Carts:       cs,
		Created:     created,
		Cancelled:   cancelled,
		Shipping:    orders.ShippingPolicy{FreeThreshold: d("500000"), FlatFee: d("30000")},
		ServiceName: "test-checkout",
	}
}

func sampleOrder() *orders.Order {
	pid := "prod-a"
	return &orders.Order{
		ID:            "order-1",
		Code:          "ORD123456789",
		UserID:        "user-1",
		Status:        orders.StatusPending,
		PaymentStatus: orders.PaymentPending,
		TotalAmount:   d("250000"),
		ShippingFee:   d("30000"),
		Items: []orders.OrderItem{
			{ProductID: &pid, ProductName: "Kaos Polos", Size: "M", Price: d("125000"), Qty: 2},
		},
	}
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	os := new(MockOrderStore)
	cs := new(MockCartStore)
	cs.On("CartLines", mock.Anything, "user-1").Return([]orders.CartLine{}, nil)

	svc := newService(os, cs, nil, nil)
	_, err := svc.CreateOrder(context.Background(), "user-1", orders.ShippingAddress{})

	assert.ErrorIs(t, err, orders.ErrEmptyCart)
	os.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestCreateOrder_RejectsNonPositiveQty(t *testing.T) {
	tests := []struct {
		name string
		qty  int
	}{
		{"negative qty", -5},
		{"zero qty", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os := new(MockOrderStore)
			cs := new(MockCartStore)
			cs.On("CartLines", mock.Anything, "user-1").Return([]orders.CartLine{
				{ProductID: "prod-a", Qty: 2},
				{ProductID: "prod-b", Qty: tt.qty},
			}, nil)

			svc := newService(os, cs, nil, nil)
			_, err := svc.CreateOrder(context.Background(), "user-1", orders.ShippingAddress{})

			// ditolak sebelum ada mutasi apapun
			assert.ErrorIs(t, err, orders.ErrInvalidQuantity)
			os.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateOrder_CartError(t *testing.T) {
	os := new(MockOrderStore)
	cs := new(MockCartStore)
	cs.On("CartLines", mock.Anything, "user-1").Return(nil, errors.New("db down"))

	svc := newService(os, cs, nil, nil)
	_, err := svc.CreateOrder(context.Background(), "user-1", orders.ShippingAddress{})

	assert.Error(t, err)
}

func TestCreateOrder_InsufficientStockPassesThrough(t *testing.T) {
	os := new(MockOrderStore)
	cs := new(MockCartStore)
	pub := new(MockPublisher)
	cs.On("CartLines", mock.Anything, "user-1").
		Return([]orders.CartLine{{ProductID: "prod-a", Qty: 2}}, nil)

	stockErr := &orders.InsufficientStockError{ProductID: "prod-a", Available: 1, Requested: 2}
	os.On("PlaceOrder", mock.Anything, mock.Anything).Return(nil, stockErr)

	svc := newService(os, cs, pub, nil)
	_, err := svc.CreateOrder(context.Background(), "user-1", orders.ShippingAddress{})

	var got *orders.InsufficientStockError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 1, got.Available)
	assert.Equal(t, 2, got.Requested)
	// gagal sebelum persist -> tidak ada event
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_HappyPathPublishesEvent(t *testing.T) {
	os := new(MockOrderStore)
	cs := new(MockCartStore)
	pub := new(MockPublisher)

	lines := []orders.CartLine{{ProductID: "prod-a", Size: "M", Qty: 2}}
	cs.On("CartLines", mock.Anything, "user-1").Return(lines, nil)

	ord := sampleOrder()
	os.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(p orders.PlaceOrderParams) bool {
		return p.UserID == "user-1" && len(p.Lines) == 1 && p.Code != "" &&
			p.Shipping.FlatFee.Equal(d("30000"))
	})).Return(ord, nil)

	pub.On("Publish", []byte(ord.ID), mock.Anything, mock.Anything).Once()

	svc := newService(os, cs, pub, nil)
	got, err := svc.CreateOrder(context.Background(), "user-1", orders.ShippingAddress{Recipient: "Budi"})

	require.NoError(t, err)
	assert.Equal(t, ord, got)
	pub.AssertExpectations(t)

	// payload event berisi snapshot item
	var env orders.Envelope
	raw := pub.Calls[0].Arguments.Get(1).([]byte)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, orders.EventOrderCreated, env.EventType)
	assert.Equal(t, ord.ID, env.CorrelationID)

	var payload orders.OrderCreatedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "ORD123456789", payload.Code)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, "Kaos Polos", payload.Items[0].Name)
}

func TestCreateOrder_RetriesOnCodeCollision(t *testing.T) {
	os := new(MockOrderStore)
	cs := new(MockCartStore)
	pub := new(MockPublisher)

	cs.On("CartLines", mock.Anything, "user-1").
		Return([]orders.CartLine{{ProductID: "prod-a", Qty: 1}}, nil)

	collision := &pgconn.PgError{Code: "23505", ConstraintName: "orders_code_key"}
	ord := sampleOrder()
	os.On("PlaceOrder", mock.Anything, mock.Anything).Return(nil, collision).Once()
	os.On("PlaceOrder", mock.Anything, mock.Anything).Return(ord, nil).Once()

	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Once()

	svc := newService(os, cs, pub, nil)
	got, err := svc.CreateOrder(context.Background(), "user-1", orders.ShippingAddress{})

	require.NoError(t, err)
	assert.Equal(t, ord, got)
	os.AssertExpectations(t)

	// kode di-regenerate, bukan dipakai ulang
	first := os.Calls[0].Arguments.Get(1).(orders.PlaceOrderParams).Code
	second := os.Calls[1].Arguments.Get(1).(orders.PlaceOrderParams).Code
	assert.NotEqual(t, first, second)
}

func TestCancelOrder_PublishesUserCancelled(t *testing.T) {
	os := new(MockOrderStore)
	pub := new(MockPublisher)

	ord := sampleOrder()
	ord.Status = orders.StatusCancelled
	ord.PaymentStatus = orders.PaymentFailed
	os.On("CancelOrder", mock.Anything, "order-1", "user-1").Return(ord, nil)
	pub.On("Publish", []byte("order-1"), mock.Anything, mock.Anything).Once()

	svc := newService(os, new(MockCartStore), nil, pub)
	got, err := svc.CancelOrder(context.Background(), "order-1", "user-1")

	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)

	var env orders.Envelope
	raw := pub.Calls[0].Arguments.Get(1).([]byte)
	require.NoError(t, json.Unmarshal(raw, &env))
	var payload orders.OrderCancelledPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, orders.CancelReasonUserCancelled, payload.Reason)
	assert.True(t, payload.Restocked)
}

func TestCancelOrder_NotCancellable(t *testing.T) {
	os := new(MockOrderStore)
	pub := new(MockPublisher)
	os.On("CancelOrder", mock.Anything, "order-1", "user-1").Return(nil, orders.ErrNotCancellable)

	svc := newService(os, new(MockCartStore), nil, pub)
	_, err := svc.CancelOrder(context.Background(), "order-1", "user-1")

	assert.ErrorIs(t, err, orders.ErrNotCancellable)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}
