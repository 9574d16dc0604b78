package expiry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/orders"
)

type MockStore struct{ mock.Mock }

func (m *MockStore) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]string, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) ExpireOrder(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	m.Called(key, value, headers)
}

func newSweeper(st *MockStore, pub *MockPublisher) *Sweeper {
	s := &Sweeper{
		Store:       st,
		Timeout:     15 * time.Minute,
		Interval:    5 * time.Minute,
		ServiceName: "test-expiry",
	}
	if pub != nil {
		s.Cancelled = pub
	}
	return s
}

func TestRunOnce_ListError(t *testing.T) {
	st := new(MockStore)
	st.On("ListExpiredPending", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	_, err := newSweeper(st, nil).RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRunOnce_CutoffRespectsTimeout(t *testing.T) {
	st := new(MockStore)
	st.On("ListExpiredPending", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		want := time.Now().UTC().Add(-15 * time.Minute)
		diff := want.Sub(cutoff)
		if diff < 0 {
			diff = -diff
		}
		return diff < time.Second
	})).Return([]string{}, nil)

	n, err := newSweeper(st, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	st.AssertExpectations(t)
}

func TestRunOnce_OneFailureDoesNotAbortSweep(t *testing.T) {
	st := new(MockStore)
	pub := new(MockPublisher)

	st.On("ListExpiredPending", mock.Anything, mock.Anything).
		Return([]string{"order-1", "order-2", "order-3"}, nil)
	st.On("ExpireOrder", mock.Anything, "order-1").Return(false, errors.New("lock timeout"))
	st.On("ExpireOrder", mock.Anything, "order-2").Return(true, nil)
	// keburu dibayar di antara select dan lock
	st.On("ExpireOrder", mock.Anything, "order-3").Return(false, nil)

	pub.On("Publish", []byte("order-2"), mock.Anything, mock.Anything).Once()

	n, err := newSweeper(st, pub).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	st.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestRunOnce_PublishesExpiredReason(t *testing.T) {
	st := new(MockStore)
	pub := new(MockPublisher)

	st.On("ListExpiredPending", mock.Anything, mock.Anything).Return([]string{"order-1"}, nil)
	st.On("ExpireOrder", mock.Anything, "order-1").Return(true, nil)
	pub.On("Publish", []byte("order-1"), mock.Anything, mock.Anything).Once()

	n, err := newSweeper(st, pub).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var env orders.Envelope
	raw := pub.Calls[0].Arguments.Get(1).([]byte)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, orders.EventOrderCancelled, env.EventType)
	assert.Equal(t, "order-1", env.CorrelationID)

	payload, err := kafkax.UnwrapPayload[orders.OrderCancelledPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, orders.CancelReasonExpired, payload.Reason)
	assert.True(t, payload.Restocked)
}

func TestRunOnce_AlreadyResolvedNotPublished(t *testing.T) {
	st := new(MockStore)
	pub := new(MockPublisher)

	st.On("ListExpiredPending", mock.Anything, mock.Anything).Return([]string{"order-1"}, nil)
	st.On("ExpireOrder", mock.Anything, "order-1").Return(false, nil)

	n, err := newSweeper(st, pub).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}
