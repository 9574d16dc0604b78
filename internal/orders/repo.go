package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

type ShippingPolicy struct {
	FreeThreshold decimal.Decimal
	FlatFee       decimal.Decimal
}

func (p ShippingPolicy) FeeFor(total decimal.Decimal) decimal.Decimal {
	if total.GreaterThanOrEqual(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.FlatFee
}

type PlaceOrderParams struct {
	UserID   string
	Code     string
	Address  ShippingAddress
	Lines    []CartLine
	Shipping ShippingPolicy
}

// IsCodeCollision: unique violation di orders.code. Caller regenerate kode
// lalu ulangi seluruh transaksi.
func IsCodeCollision(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "orders_code_key"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// mergeCartLines menjumlahkan qty baris dengan (product, size) sama, urutan
// kemunculan pertama dipertahankan.
func mergeCartLines(in []CartLine) []CartLine {
	idx := make(map[[2]string]int, len(in))
	out := make([]CartLine, 0, len(in))
	for _, l := range in {
		k := [2]string{l.ProductID, l.Size}
		if i, ok := idx[k]; ok {
			out[i].Qty += l.Qty
			continue
		}
		idx[k] = len(out)
		out = append(out, l)
	}
	return out
}

// PlaceOrder menjalankan seluruh checkout dalam SATU transaksi:
// lock produk (FOR UPDATE) -> cek stok vs qty -> snapshot nama/slug/harga ->
// hitung total + ongkir -> insert order+alamat+items -> potong stok ->
// kosongkan cart. Gagal di baris manapun = rollback total, tidak ada order
// setengah jadi atau stok terpotong sebagian.
func (r *Repo) PlaceOrder(ctx context.Context, p PlaceOrderParams) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// gabung baris duplikat dulu: cek stok harus melihat TOTAL permintaan per
	// (product, size), bukan per baris, supaya dua baris qty 2 atas stok 3
	// tidak lolos dua-duanya
	lines := mergeCartLines(p.Lines)

	now := time.Now().UTC()
	total := decimal.Zero
	items := make([]OrderItem, 0, len(lines))

	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, ErrInvalidQuantity
		}
		var (
			name, slug string
			price      decimal.Decimal
			stock      int
		)
		err := tx.QueryRow(ctx, `
			SELECT name, slug, price, stock FROM products WHERE id = $1 FOR UPDATE`,
			line.ProductID).Scan(&name, &slug, &price, &stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if err != nil {
			return nil, err
		}

		available := stock
		if line.Size != "" {
			err := tx.QueryRow(ctx, `
				SELECT stock FROM product_sizes
				WHERE product_id = $1 AND size = $2 FOR UPDATE`,
				line.ProductID, line.Size).Scan(&available)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrSizeNotFound
			}
			if err != nil {
				return nil, err
			}
		}
		if available < line.Qty {
			return nil, &InsufficientStockError{
				ProductID: line.ProductID,
				Size:      line.Size,
				Available: available,
				Requested: line.Qty,
			}
		}

		pid := line.ProductID
		items = append(items, OrderItem{
			ID:          uuid.NewString(),
			ProductID:   &pid,
			ProductName: name,
			ProductSlug: slug,
			Size:        line.Size,
			Price:       price, // harga saat checkout, bukan saat add-to-cart
			Qty:         line.Qty,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Qty))))
	}

	shippingFee := p.Shipping.FeeFor(total)

	ord := &Order{
		ID:            uuid.NewString(),
		Code:          p.Code,
		UserID:        p.UserID,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		TotalAmount:   total,
		ShippingFee:   shippingFee,
		DiscountValue: decimal.Zero,
		Address:       p.Address,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, code, user_id, status, payment_status,
			total_amount, shipping_fee, discount_value,
			ship_recipient, ship_phone, ship_line1, ship_ward, ship_district, ship_city,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)`,
		ord.ID, ord.Code, ord.UserID, ord.Status, ord.PaymentStatus,
		ord.TotalAmount, ord.ShippingFee, ord.DiscountValue,
		ord.Address.Recipient, ord.Address.Phone, ord.Address.Line1,
		ord.Address.Ward, ord.Address.District, ord.Address.City, now)
	if err != nil {
		return nil, err
	}

	for i := range items {
		it := &items[i]
		it.OrderID = ord.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, product_name, product_slug, size, price, qty)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			it.ID, it.OrderID, it.ProductID, it.ProductName, it.ProductSlug, it.Size, it.Price, it.Qty)
		if err != nil {
			return nil, err
		}

		// potong stok di transaksi yang sama dengan insert order
		if it.Size != "" {
			if err := sizeAdjustTx(ctx, tx, *it.ProductID, it.Size, -it.Qty); err != nil {
				return nil, err
			}
		} else {
			if err := stockAdjustTx(ctx, tx, *it.ProductID, -it.Qty); err != nil {
				return nil, err
			}
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, p.UserID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ord, nil
}

func (r *Repo) OrderByID(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, code, user_id, status, payment_status,
		       total_amount, shipping_fee, discount_value,
		       ship_recipient, ship_phone, ship_line1, ship_ward, ship_district, ship_city,
		       created_at, updated_at
		FROM orders WHERE id = $1`, orderID).Scan(
		&o.ID, &o.Code, &o.UserID, &o.Status, &o.PaymentStatus,
		&o.TotalAmount, &o.ShippingFee, &o.DiscountValue,
		&o.Address.Recipient, &o.Address.Phone, &o.Address.Line1,
		&o.Address.Ward, &o.Address.District, &o.Address.City,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, product_name, product_slug, size, price, qty
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.ProductSlug, &it.Size, &it.Price, &it.Qty); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) OrderStatus(ctx context.Context, orderID string) (Status, PaymentStatus, error) {
	var s Status
	var p PaymentStatus
	err := r.DB.QueryRow(ctx, `SELECT status, payment_status FROM orders WHERE id = $1`, orderID).
		Scan(&s, &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrOrderNotFound
	}
	if err != nil {
		return "", "", err
	}
	return s, p, nil
}

// lockOrderStateTx re-fetch status order di dalam transaksi (FOR UPDATE).
// Ini satu-satunya mekanisme anti-race antara webhook, cancel user, dan
// expiry sweep: siapa commit duluan menang, sisanya lihat state baru dan
// no-op.
func lockOrderStateTx(ctx context.Context, tx pgx.Tx, orderID string) (Status, PaymentStatus, error) {
	var s Status
	var p PaymentStatus
	err := tx.QueryRow(ctx, `
		SELECT status, payment_status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&s, &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrOrderNotFound
	}
	if err != nil {
		return "", "", err
	}
	return s, p, nil
}

// ConfirmPayment: transaksi provider -> PAID, order -> CONFIRMED/PAID.
// Stok TIDAK disentuh (sudah dipotong saat order dibuat). Return false =
// no-op karena order sudah tidak PENDING/PENDING (duplicate delivery atau
// kalah race) — bukan error.
func (r *Repo) ConfirmPayment(ctx context.Context, orderID string, providerPayload []byte) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	s, p, err := lockOrderStateTx(ctx, tx, orderID)
	if err != nil {
		return false, err
	}
	if StateOf(s, p) != StateAwaitingPayment {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE payment_transactions
		SET status = $2, payos_data = $3, updated_at = now()
		WHERE order_id = $1`, orderID, TxPaid, providerPayload); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, payment_status = $3, updated_at = now()
		WHERE id = $1`, orderID, StatusConfirmed, PaymentPaid); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// FailPayment: transaksi provider -> FAILED, order -> CANCELLED/FAILED,
// stok dikembalikan lewat restoreOrderItemsTx. Satu unit transaksi.
func (r *Repo) FailPayment(ctx context.Context, orderID string, providerPayload []byte) (bool, error) {
	return r.cancelTx(ctx, orderID, TxFailed, providerPayload)
}

// ExpireOrder dipakai sweeper & recovery runner. Transaksi provider (kalau
// ada) -> EXPIRED.
func (r *Repo) ExpireOrder(ctx context.Context, orderID string) (bool, error) {
	return r.cancelTx(ctx, orderID, TxExpired, nil)
}

func (r *Repo) cancelTx(ctx context.Context, orderID string, txStatus TxStatus, providerPayload []byte) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	s, p, err := lockOrderStateTx(ctx, tx, orderID)
	if err != nil {
		return false, err
	}
	if StateOf(s, p) != StateAwaitingPayment {
		// sudah resolved (webhook sukses, cancel lain, atau sweep tick
		// sebelumnya) — jangan restore dua kali
		return false, nil
	}

	if err := restoreOrderItemsTx(ctx, tx, orderID); err != nil {
		return false, err
	}

	if providerPayload != nil {
		_, err = tx.Exec(ctx, `
			UPDATE payment_transactions
			SET status = $2, payos_data = $3, updated_at = now()
			WHERE order_id = $1`, orderID, txStatus, providerPayload)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE payment_transactions
			SET status = $2, updated_at = now()
			WHERE order_id = $1`, orderID, txStatus)
	}
	if err != nil {
		return false, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, payment_status = $3, updated_at = now()
		WHERE id = $1`, orderID, StatusCancelled, PaymentFailed); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// CancelOrder: cancel eksplisit oleh user. Hanya order PENDING miliknya.
func (r *Repo) CancelOrder(ctx context.Context, orderID, userID string) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var owner string
	var s Status
	var p PaymentStatus
	err = tx.QueryRow(ctx, `
		SELECT user_id, status, payment_status FROM orders WHERE id = $1 FOR UPDATE`,
		orderID).Scan(&owner, &s, &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, ErrForbidden
	}
	if StateOf(s, p) != StateAwaitingPayment {
		return nil, ErrNotCancellable
	}

	if err := restoreOrderItemsTx(ctx, tx, orderID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE payment_transactions SET status = $2, updated_at = now()
		WHERE order_id = $1`, orderID, TxCancelled); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, payment_status = $3, updated_at = now()
		WHERE id = $1`, orderID, StatusCancelled, PaymentFailed); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.OrderByID(ctx, orderID)
}

// ListExpiredPending: kandidat sweep — PENDING/PENDING lebih tua dari cutoff.
func (r *Repo) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id FROM orders
		WHERE status = $1 AND payment_status = $2 AND created_at < $3
		ORDER BY created_at`, StatusPending, PaymentPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
