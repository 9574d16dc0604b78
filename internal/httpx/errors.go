package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-shop-checkout.git/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError: pesan stabil tanpa detail internal. Konflik stok adalah
// satu-satunya error yang membawa angka (available vs requested) supaya
// client bisa menyesuaikan jumlah.
func writeError(w http.ResponseWriter, err error) {
	var stockErr *orders.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "insufficient stock",
			"product_id": stockErr.ProductID,
			"size":       stockErr.Size,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
		return
	}

	switch {
	case errors.Is(err, orders.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart is empty"})
	case errors.Is(err, orders.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
	case errors.Is(err, orders.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
	case errors.Is(err, orders.ErrSizeNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "size not found"})
	case errors.Is(err, orders.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, orders.ErrTxNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "transaction not found"})
	case errors.Is(err, orders.ErrAlreadyPaid):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order already paid"})
	case errors.Is(err, orders.ErrTxAlreadyExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "payment transaction already exists"})
	case errors.Is(err, orders.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, orders.ErrNotCancellable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is not cancellable"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
