// Package payos adalah client untuk hosted checkout PayOS: bikin payment
// link dan verifikasi webhook (HMAC-SHA256 sesuai skema signature yang
// dipublikasikan provider).
package payos

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	codeSuccess = "00"

	// orderCode sentinel yang dipakai PayOS saat nge-test URL webhook.
	testOrderCode = 123
)

type Config struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
}

type Client struct {
	http        *resty.Client
	checksumKey string
}

func NewClient(cfg Config) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(10 * time.Second).
			SetHeader("x-client-id", cfg.ClientID).
			SetHeader("x-api-key", cfg.APIKey),
		checksumKey: cfg.ChecksumKey,
	}
}

type LinkItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type LinkRequest struct {
	OrderCode   int64      `json:"orderCode"`
	Amount      int64      `json:"amount"`
	Description string     `json:"description"`
	Items       []LinkItem `json:"items"`
	ReturnURL   string     `json:"returnUrl"`
	CancelURL   string     `json:"cancelUrl"`
	Signature   string     `json:"signature"`
}

type LinkData struct {
	OrderCode     int64  `json:"orderCode"`
	Amount        int64  `json:"amount"`
	PaymentLinkID string `json:"paymentLinkId"`
	CheckoutURL   string `json:"checkoutUrl"`
	Status        string `json:"status"`
}

type apiEnvelope struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// CreateLink minta hosted-checkout URL ke provider.
func (c *Client) CreateLink(ctx context.Context, req LinkRequest) (*LinkData, error) {
	req.Signature = c.signLinkRequest(req)

	var env apiEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&env).
		Post("/v2/payment-requests")
	if err != nil {
		return nil, fmt.Errorf("payos create link: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("payos create link: http %d", resp.StatusCode())
	}
	if env.Code != codeSuccess {
		return nil, fmt.Errorf("payos create link rejected: code=%s desc=%s", env.Code, env.Desc)
	}
	var data LinkData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("payos create link: decode data: %w", err)
	}
	return &data, nil
}

// signLinkRequest: HMAC atas field yang provider wajibkan, urut alfabet.
func (c *Client) signLinkRequest(req LinkRequest) string {
	msg := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		req.Amount, req.CancelURL, req.Description, req.OrderCode, req.ReturnURL)
	return hmacHex(c.checksumKey, msg)
}

type WebhookData struct {
	OrderCode     int64  `json:"orderCode"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	Reference     string `json:"reference"`
	PaymentLinkID string `json:"paymentLinkId"`
	Code          string `json:"code"`
	Desc          string `json:"desc"`
}

type WebhookPayload struct {
	Code      string      `json:"code"`
	Desc      string      `json:"desc"`
	Success   bool        `json:"success"`
	Data      WebhookData `json:"data"`
	Signature string      `json:"signature"`

	// body mentah, diteruskan ke storage untuk audit
	Raw json.RawMessage `json:"-"`
}

func (p *WebhookPayload) IsPaid() bool {
	return p.Success && p.Code == codeSuccess && p.Data.Code == codeSuccess
}

// IsConnectivityProbe mengenali payload test dari provider (health check
// saat konfigurasi webhook URL): tanpa payment link id sungguhan atau pakai
// orderCode sentinel. Ini harus di-ack sukses, bukan ditolak sebagai attack.
func (p *WebhookPayload) IsConnectivityProbe() bool {
	return p.Data.PaymentLinkID == "" || p.Data.OrderCode == testOrderCode
}

// VerifyWebhook parse + cek signature. Payload dikembalikan juga saat
// signature salah (caller perlu bentuknya untuk deteksi probe), bersama
// error verifikasi.
func (c *Client) VerifyWebhook(raw []byte) (*WebhookPayload, error) {
	var shape struct {
		Code      string          `json:"code"`
		Desc      string          `json:"desc"`
		Success   bool            `json:"success"`
		Data      json.RawMessage `json:"data"`
		Signature string          `json:"signature"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("parse webhook: %w", err)
	}

	p := &WebhookPayload{
		Code:      shape.Code,
		Desc:      shape.Desc,
		Success:   shape.Success,
		Signature: shape.Signature,
		Raw:       append(json.RawMessage(nil), raw...),
	}
	if len(shape.Data) > 0 {
		if err := json.Unmarshal(shape.Data, &p.Data); err != nil {
			return nil, fmt.Errorf("parse webhook data: %w", err)
		}
	}

	want, err := SignPayload(c.checksumKey, shape.Data)
	if err != nil {
		return p, fmt.Errorf("sign webhook data: %w", err)
	}
	if !hmac.Equal([]byte(want), []byte(shape.Signature)) {
		return p, fmt.Errorf("webhook signature mismatch")
	}
	return p, nil
}

// SignPayload menghitung signature provider atas objek data: key diurutkan
// alfabetis, dirangkai "k=v&k=v", lalu HMAC-SHA256 hex.
func SignPayload(checksumKey string, data json.RawMessage) (string, error) {
	fields := map[string]any{}
	if len(data) > 0 {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber() // jaga angka apa adanya, jangan jadi float
		if err := dec.Decode(&fields); err != nil {
			return "", err
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(renderValue(fields[k]))
	}
	return hmacHex(checksumKey, b.String()), nil
}

func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func hmacHex(key, msg string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
