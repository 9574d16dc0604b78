package redisx

import "time"

const (
	// Cache status order: order_status:{order_id} -> {"status":"...","payment_status":"..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup webhook delivery yg sudah diapply: dedup:webhook:{transaction_code}
	// Fast path saja; kebenaran tetap di Postgres (idempotency gate §webhook).
	KeyWebhookDedup = "dedup:webhook:%s"

	// Dedup event consumer di worker: dedup:{service}:{event_id}
	KeyEventDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache  = 5 * time.Minute
	TTLWebhookDedup = 48 * time.Hour
	TTLEventDedup   = 48 * time.Hour
)
