package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockRepo adalah ledger stok: counter per produk dan per size. Semua
// mutasi dinyatakan sebagai "stock = stock ± n" di SQL, bukan read-modify-
// write di aplikasi, supaya decrement paralel dari checkout bersamaan tidak
// saling menimpa. Non-negativity dijaga caller (check+decrement dalam satu
// transaksi, lihat Repo.PlaceOrder).
type StockRepo struct{ DB *pgxpool.Pool }

func (r *StockRepo) Decrement(ctx context.Context, productID string, qty int) error {
	return r.adjust(ctx, productID, -qty)
}

func (r *StockRepo) Increment(ctx context.Context, productID string, qty int) error {
	return r.adjust(ctx, productID, qty)
}

func (r *StockRepo) adjust(ctx context.Context, productID string, delta int) error {
	ct, err := r.DB.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`,
		productID, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrProductNotFound
	}
	return nil
}

// DecrementSize mengurangi stok satu varian lalu menghitung ulang stok
// skalar dari seluruh baris size. Skalar tidak pernah di-update independen
// dari baris size, supaya invariant sum tetap terjaga.
func (r *StockRepo) DecrementSize(ctx context.Context, productID, size string, qty int) error {
	return r.adjustSize(ctx, productID, size, -qty)
}

func (r *StockRepo) IncrementSize(ctx context.Context, productID, size string, qty int) error {
	return r.adjustSize(ctx, productID, size, qty)
}

func (r *StockRepo) adjustSize(ctx context.Context, productID, size string, delta int) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := sizeAdjustTx(ctx, tx, productID, size, delta); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *StockRepo) GetSizeStock(ctx context.Context, productID, size string) (int, error) {
	var stock int
	err := r.DB.QueryRow(ctx, `SELECT stock FROM product_sizes WHERE product_id = $1 AND size = $2`,
		productID, size).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrSizeNotFound
	}
	if err != nil {
		return 0, err
	}
	return stock, nil
}

// ---- tx-level helpers, dipakai juga oleh Repo (checkout / compensate) ----

func stockAdjustTx(ctx context.Context, tx pgx.Tx, productID string, delta int) error {
	ct, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`,
		productID, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrProductNotFound
	}
	return nil
}

func sizeAdjustTx(ctx context.Context, tx pgx.Tx, productID, size string, delta int) error {
	ct, err := tx.Exec(ctx, `
		UPDATE product_sizes SET stock = stock + $3
		WHERE product_id = $1 AND size = $2`, productID, size, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrSizeNotFound
	}
	return recomputeProductStockTx(ctx, tx, productID)
}

// recomputeProductStockTx: skalar = SUM(size rows). Satu-satunya cara skalar
// berubah untuk produk ber-varian.
func recomputeProductStockTx(ctx context.Context, tx pgx.Tx, productID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE products
		SET stock = (SELECT COALESCE(SUM(stock), 0) FROM product_sizes WHERE product_id = $1),
		    updated_at = now()
		WHERE id = $1`, productID)
	return err
}

// restoreOrderItemsTx adalah primitive kompensasi tunggal: kembalikan stok
// persis sebanyak yang dipotong saat order dibuat. Dipanggil dari webhook
// gagal, cancel user, dan expiry — tidak ada jalur restore kedua.
func restoreOrderItemsTx(ctx context.Context, tx pgx.Tx, orderID string) error {
	rows, err := tx.Query(ctx, `
		SELECT product_id, size, qty FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return err
	}
	defer rows.Close()

	type line struct {
		pid  *string
		size string
		qty  int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.pid, &l.size, &l.qty); err != nil {
			return err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, l := range lines {
		if l.pid == nil {
			// produk sudah dihapus; tidak ada counter untuk dikembalikan
			continue
		}
		if l.size != "" {
			if err := sizeAdjustTx(ctx, tx, *l.pid, l.size, l.qty); err != nil {
				if errors.Is(err, ErrSizeNotFound) || errors.Is(err, ErrProductNotFound) {
					continue
				}
				return fmt.Errorf("restore size stock %s/%s: %w", *l.pid, l.size, err)
			}
			continue
		}
		if err := stockAdjustTx(ctx, tx, *l.pid, l.qty); err != nil {
			if errors.Is(err, ErrProductNotFound) {
				continue
			}
			return fmt.Errorf("restore stock %s: %w", *l.pid, err)
		}
	}
	return nil
}
