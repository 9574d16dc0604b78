package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string
	Name      string
	Slug      string
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SizeStock adalah baris stok per varian ukuran. Invariant: products.stock =
// SUM(product_sizes.stock) kalau baris size ada.
type SizeStock struct {
	ProductID string
	Size      string
	Stock     int
}

// ShippingAddress di-copy ke order saat checkout (snapshot, bukan referensi).
type ShippingAddress struct {
	Recipient string `json:"recipient"`
	Phone     string `json:"phone"`
	Line1     string `json:"line1"`
	Ward      string `json:"ward"`
	District  string `json:"district"`
	City      string `json:"city"`
}

type Order struct {
	ID            string
	Code          string
	UserID        string
	Status        Status
	PaymentStatus PaymentStatus
	TotalAmount   decimal.Decimal
	ShippingFee   decimal.Decimal
	DiscountValue decimal.Decimal
	Address       ShippingAddress
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (o *Order) State() State { return StateOf(o.Status, o.PaymentStatus) }

// OrderItem adalah snapshot saat pembelian: nama/slug/harga di-copy supaya
// order lama tetap terbaca walau produknya berubah atau dihapus.
type OrderItem struct {
	ID          string
	OrderID     string
	ProductID   *string // nullable: produk bisa dihapus belakangan
	ProductName string
	ProductSlug string
	Size        string // kosong = produk tanpa varian
	Price       decimal.Decimal
	Qty         int
}

func (it OrderItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Qty)))
}

// PaymentTransaction 1-1 dengan order (unique order_id).
type PaymentTransaction struct {
	ID              string
	OrderID         string
	TransactionCode string // paymentLinkId dari provider, unique
	Amount          decimal.Decimal
	Status          TxStatus
	PaymentURL      string
	// Payload provider terakhir, disimpan mentah untuk audit & inspeksi idempotensi.
	PayosData json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine adalah satu baris keranjang sumber checkout.
type CartLine struct {
	ProductID string
	Size      string
	Qty       int
}
