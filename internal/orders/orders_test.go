package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestOrderItemSubtotal(t *testing.T) {
	it := OrderItem{Price: d("150000"), Qty: 3}
	assert.True(t, it.Subtotal().Equal(d("450000")))
}

func TestShippingPolicyFeeFor(t *testing.T) {
	p := ShippingPolicy{FreeThreshold: d("500000"), FlatFee: d("30000")}

	assert.True(t, p.FeeFor(d("499999")).Equal(d("30000")))
	assert.True(t, p.FeeFor(d("500000")).IsZero()) // tepat di threshold = gratis
	assert.True(t, p.FeeFor(d("750000")).IsZero())
}

func TestInsufficientStockError(t *testing.T) {
	err := &InsufficientStockError{ProductID: "p1", Available: 1, Requested: 2}
	assert.Contains(t, err.Error(), "available 1")
	assert.Contains(t, err.Error(), "requested 2")

	withSize := &InsufficientStockError{ProductID: "p2", Size: "M", Available: 0, Requested: 1}
	assert.Contains(t, withSize.Error(), "size M")
}
