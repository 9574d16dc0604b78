package orders

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
)

const codePrefix = "ORD"

// NewOrderCode bikin kode order human-readable: prefix tetap + 9 digit acak.
// Collision ditangani caller dengan regenerate + retry, bukan fail.
func NewOrderCode() string {
	return fmt.Sprintf("%s%09d", codePrefix, rand.Intn(1_000_000_000))
}

// providerRefCap menjaga orderCode numerik tetap dalam batas provider.
const providerRefCap = 1_000_000_000_000

// ProviderOrderCode menurunkan referensi numerik deterministik dari kode
// order untuk provider (provider butuh angka, bukan kode alfanumerik kita).
// Ambil digit dari kode; kalau tidak ada digit yang valid, fallback hash
// FNV-1a yang stabil.
func ProviderOrderCode(code string) int64 {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimLeft(b.String(), "0")
	if digits != "" && len(digits) <= 12 {
		var n int64
		for _, r := range digits {
			n = n*10 + int64(r-'0')
		}
		if n > 0 {
			return n
		}
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(code))
	return int64(h.Sum64() % providerRefCap)
}
