package payos

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-checksum-key"

func manualHMAC(key, msg string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSignPayload_SortsKeysAlphabetically(t *testing.T) {
	// field sengaja tidak urut di JSON
	data := json.RawMessage(`{"orderCode":123456,"amount":250000,"code":"00"}`)

	got, err := SignPayload(testKey, data)
	require.NoError(t, err)

	want := manualHMAC(testKey, "amount=250000&code=00&orderCode=123456")
	assert.Equal(t, want, got)
}

func TestSignPayload_ValueRendering(t *testing.T) {
	data := json.RawMessage(`{"desc":"ok","counterAccountName":null,"success":true,"amount":99}`)

	got, err := SignPayload(testKey, data)
	require.NoError(t, err)

	// null -> string kosong, bool -> true/false, angka apa adanya
	want := manualHMAC(testKey, "amount=99&counterAccountName=&desc=ok&success=true")
	assert.Equal(t, want, got)
}

func signedWebhookBody(t *testing.T, data string) []byte {
	t.Helper()
	sig, err := SignPayload(testKey, json.RawMessage(data))
	require.NoError(t, err)
	return []byte(fmt.Sprintf(`{"code":"00","desc":"success","success":true,"data":%s,"signature":"%s"}`, data, sig))
}

func TestVerifyWebhook_Valid(t *testing.T) {
	c := NewClient(Config{ChecksumKey: testKey})
	body := signedWebhookBody(t, `{"orderCode":987654,"amount":250000,"description":"TT ORD987654","reference":"FT123","paymentLinkId":"pl_abc123","code":"00","desc":"success"}`)

	p, err := c.VerifyWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, int64(987654), p.Data.OrderCode)
	assert.Equal(t, "pl_abc123", p.Data.PaymentLinkID)
	assert.True(t, p.IsPaid())
	assert.False(t, p.IsConnectivityProbe())
	assert.JSONEq(t, string(body), string(p.Raw))
}

func TestVerifyWebhook_TamperedAmount(t *testing.T) {
	c := NewClient(Config{ChecksumKey: testKey})
	body := signedWebhookBody(t, `{"orderCode":987654,"amount":250000,"paymentLinkId":"pl_abc123","code":"00"}`)
	tampered := []byte(replaceOnce(string(body), `"amount":250000`, `"amount":1`))

	p, err := c.VerifyWebhook(tampered)
	assert.Error(t, err)
	// payload tetap dikembalikan supaya caller bisa cek bentuk probe
	require.NotNil(t, p)
	assert.False(t, p.IsConnectivityProbe())
}

func TestVerifyWebhook_FailureCode(t *testing.T) {
	c := NewClient(Config{ChecksumKey: testKey})
	body := signedWebhookBody(t, `{"orderCode":987654,"amount":250000,"paymentLinkId":"pl_abc123","code":"01","desc":"cancelled"}`)

	p, err := c.VerifyWebhook(body)
	require.NoError(t, err)
	assert.False(t, p.IsPaid())
}

func TestIsConnectivityProbe(t *testing.T) {
	sentinel := &WebhookPayload{Data: WebhookData{OrderCode: 123, PaymentLinkID: "whatever"}}
	assert.True(t, sentinel.IsConnectivityProbe())

	noLink := &WebhookPayload{Data: WebhookData{OrderCode: 999999}}
	assert.True(t, noLink.IsConnectivityProbe())

	real := &WebhookPayload{Data: WebhookData{OrderCode: 987654, PaymentLinkID: "pl_abc123"}}
	assert.False(t, real.IsConnectivityProbe())
}

func replaceOnce(s, old, new string) string {
	for i := 0; i+len(old) <= len(s); i++ {
		if s[i:i+len(old)] == old {
			return s[:i] + new + s[i+len(old):]
		}
	}
	return s
}
