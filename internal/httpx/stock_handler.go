package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-shop-checkout.git/internal/orders"
)

type StockStore interface {
	Increment(ctx context.Context, productID string, qty int) error
	Decrement(ctx context.Context, productID string, qty int) error
	IncrementSize(ctx context.Context, productID, size string, qty int) error
	DecrementSize(ctx context.Context, productID, size string, qty int) error
	GetSizeStock(ctx context.Context, productID, size string) (int, error)
}

// StockHandler adalah surface admin/katalog untuk koreksi stok manual
// (restock, stock opname). Checkout tidak lewat sini — deduksi checkout
// terjadi di dalam transaksi PlaceOrder.
type StockHandler struct {
	Stock StockStore
	Log   zerolog.Logger
}

func (h *StockHandler) Register(r *chi.Mux) {
	r.Post("/admin/products/{id}/stock", h.adjustStock)
	r.Get("/admin/products/{id}/sizes/{size}/stock", h.getSizeStock)
}

type adjustStockReq struct {
	Size  string `json:"size,omitempty"`
	Delta int    `json:"delta"` // positif = restock, negatif = koreksi turun
}

func (h *StockHandler) adjustStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	var req adjustStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Delta == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta must be non-zero"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var err error
	switch {
	case req.Size != "" && req.Delta > 0:
		err = h.Stock.IncrementSize(ctx, productID, req.Size, req.Delta)
	case req.Size != "":
		err = h.Stock.DecrementSize(ctx, productID, req.Size, -req.Delta)
	case req.Delta > 0:
		err = h.Stock.Increment(ctx, productID, req.Delta)
	default:
		err = h.Stock.Decrement(ctx, productID, -req.Delta)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	h.Log.Info().Str("product_id", productID).Str("size", req.Size).
		Int("delta", req.Delta).Msg("stock adjusted")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *StockHandler) getSizeStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	stock, err := h.Stock.GetSizeStock(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "size"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"stock": stock})
}

var _ StockStore = (*orders.StockRepo)(nil)
