package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-shop-checkout.git/internal/orders"
	"github.com/ariefcatur/go-shop-checkout.git/internal/payment"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
)

type OrdersHandler struct {
	Checkout *checkout.Service
	Payments *payment.Service
	Orders   *orders.Repo
	Redis    *redis.Client
	Log      zerolog.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Post("/orders/{id}/payment-link", h.createPaymentLink)
	r.Post("/webhooks/payos", h.payosWebhook)
}

type createOrderReq struct {
	Address orders.ShippingAddress `json:"shipping_address"`
}

type orderResp struct {
	OrderID       string               `json:"order_id"`
	Code          string               `json:"code"`
	Status        orders.Status        `json:"status"`
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	ShippingFee   decimal.Decimal      `json:"shipping_fee"`
	Items         []orderItemResp      `json:"items,omitempty"`
}

type orderItemResp struct {
	ProductName string          `json:"product_name"`
	ProductSlug string          `json:"product_slug"`
	Size        string          `json:"size,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Qty         int             `json:"qty"`
}

func toOrderResp(o *orders.Order) orderResp {
	resp := orderResp{
		OrderID:       o.ID,
		Code:          o.Code,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		TotalAmount:   o.TotalAmount,
		ShippingFee:   o.ShippingFee,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResp{
			ProductName: it.ProductName,
			ProductSlug: it.ProductSlug,
			Size:        it.Size,
			Price:       it.Price,
			Qty:         it.Qty,
		})
	}
	return resp
}

// user id datang dari layer auth di depan (gateway) lewat header.
func userID(r *http.Request) string { return r.Header.Get("X-User-Id") }

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing user"})
		return
	}
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Address.Recipient == "" || req.Address.Phone == "" || req.Address.Line1 == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing shipping address fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ord, err := h.Checkout.CreateOrder(ctx, uid, req.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResp(ord))
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback DB
	status, payStatus, err := h.Orders.OrderStatus(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	body := map[string]any{"status": status, "payment_status": payStatus}
	b, _ := json.Marshal(body)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing user"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ord, err := h.Checkout.CancelOrder(ctx, chi.URLParam(r, "id"), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(ord))
}

func (h *OrdersHandler) createPaymentLink(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second) // ada call keluar ke provider
	defer cancel()

	link, err := h.Payments.CreatePaymentLink(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"checkout_url":     link.URL,
		"transaction_code": link.TransactionCode,
	})
}

// payosWebhook SELALU ack 200 ke provider, apapun hasil internal. Kalau
// kita balas error, provider akan retry-storm payload yang memang tidak
// akan pernah bisa diproses; kegagalan internal cukup berisik di log.
func (h *OrdersHandler) payosWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		h.Log.Error().Err(err).Msg("webhook body read failed")
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Payments.HandleWebhook(ctx, raw); err != nil {
		// sudah di-log di service dengan konteks lengkap
		h.Log.Error().Err(err).Msg("webhook processing failed, acked anyway")
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	const maxBody = 1 << 20
	return io.ReadAll(io.LimitReader(r.Body, maxBody))
}
