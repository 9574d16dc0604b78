package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateOf(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		pay    PaymentStatus
		want   State
	}{
		{"fresh order awaits payment", StatusPending, PaymentPending, StateAwaitingPayment},
		{"paid order is confirmed", StatusConfirmed, PaymentPaid, StateConfirmed},
		{"failed order is cancelled", StatusCancelled, PaymentFailed, StateCancelled},
		{"admin shipping flow is out of scope", StatusShipping, PaymentPaid, StateOutOfScope},
		{"illegal mix is out of scope", StatusCancelled, PaymentPaid, StateOutOfScope},
		{"refund flow is out of scope", StatusReturned, PaymentRefunded, StateOutOfScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateOf(tt.status, tt.pay))
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateAwaitingPayment, StateConfirmed))
	assert.True(t, CanTransition(StateAwaitingPayment, StateCancelled))

	// terminal untuk core ini
	assert.False(t, CanTransition(StateConfirmed, StateCancelled))
	assert.False(t, CanTransition(StateCancelled, StateConfirmed))
	assert.False(t, CanTransition(StateConfirmed, StateAwaitingPayment))
	assert.False(t, CanTransition(StateCancelled, StateAwaitingPayment))
}
