package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepo struct{ DB *pgxpool.Pool }

// CreateTransaction: satu transaksi per order (unique order_id). Caller cek
// TransactionByOrderID dulu, tapi dua request pertama bisa balapan; yang
// kalah insert dapat ErrTxAlreadyExists, bukan error mentah.
func (r *PaymentRepo) CreateTransaction(ctx context.Context, t *PaymentTransaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO payment_transactions(id, order_id, transaction_code, amount, status, payment_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now(),now())`,
		t.ID, t.OrderID, t.TransactionCode, t.Amount, t.Status, t.PaymentURL)
	if isUniqueViolation(err) {
		return ErrTxAlreadyExists
	}
	return err
}

func (r *PaymentRepo) TransactionByOrderID(ctx context.Context, orderID string) (*PaymentTransaction, error) {
	return r.scanOne(ctx, `WHERE order_id = $1`, orderID)
}

func (r *PaymentRepo) TransactionByCode(ctx context.Context, code string) (*PaymentTransaction, error) {
	return r.scanOne(ctx, `WHERE transaction_code = $1`, code)
}

func (r *PaymentRepo) scanOne(ctx context.Context, where string, arg any) (*PaymentTransaction, error) {
	var t PaymentTransaction
	err := r.DB.QueryRow(ctx, `
		SELECT id, order_id, transaction_code, amount, status, payment_url, payos_data, created_at, updated_at
		FROM payment_transactions `+where, arg).Scan(
		&t.ID, &t.OrderID, &t.TransactionCode, &t.Amount, &t.Status,
		&t.PaymentURL, &t.PayosData, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTxNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
