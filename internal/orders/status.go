package orders

// Status adalah lifecycle order. PROCESSING..RETURNED dikelola admin di luar
// core pembayaran ini.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipping   Status = "SHIPPING"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusReturned   Status = "RETURNED"
)

// PaymentStatus adalah lifecycle pembayaran.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// TxStatus adalah status record transaksi provider.
type TxStatus string

const (
	TxPending   TxStatus = "PENDING"
	TxPaid      TxStatus = "PAID"
	TxFailed    TxStatus = "FAILED"
	TxExpired   TxStatus = "EXPIRED"
	TxCancelled TxStatus = "CANCELLED"
)

// State adalah union kombinasi (status, payment_status) yang reachable di
// core ini. Kombinasi lain (mis. CANCELLED+PAID) tidak bisa dibentuk lewat
// operasi yang ada.
type State int

const (
	// StateAwaitingPayment: PENDING / PENDING. Stok sudah dipotong,
	// menunggu webhook atau expiry.
	StateAwaitingPayment State = iota
	// StateConfirmed: CONFIRMED / PAID.
	StateConfirmed
	// StateCancelled: CANCELLED / FAILED. Stok sudah dikembalikan.
	StateCancelled
	// StateOutOfScope: kombinasi yang dikelola alur admin (shipping dst).
	StateOutOfScope
)

func StateOf(s Status, p PaymentStatus) State {
	switch {
	case s == StatusPending && p == PaymentPending:
		return StateAwaitingPayment
	case s == StatusConfirmed && p == PaymentPaid:
		return StateConfirmed
	case s == StatusCancelled && p == PaymentFailed:
		return StateCancelled
	default:
		return StateOutOfScope
	}
}

var validNext = map[State]map[State]bool{
	StateAwaitingPayment: {StateConfirmed: true, StateCancelled: true},
	StateConfirmed:       {},
	StateCancelled:       {},
}

func CanTransition(from, to State) bool {
	return validNext[from][to]
}
