package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultReferencePrefix = "CRS"

// NewReference membuat reference unik, mis. CRS-20250101-101010-1A2B3C4D5E6F.
// Suffix: 12 hex pertama uuid v4.
func NewReference(prefix string) string {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultReferencePrefix
	}
	now := time.Now().Format("20060102-150405")
	u := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(prefix) + "-" + now + "-" + strings.ToUpper(u[:12])
}

// VerifyNotificationSignature cek signature notifikasi Midtrans:
// SHA512(order_id + status_code + gross_amount + server_key).
func VerifyNotificationSignature(orderID, statusCode, grossAmount, serverKey, signature string) bool {
	if signature == "" || serverKey == "" {
		return false
	}
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(signature))) == 1
}
