package gateway

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReferenceIsUniqueAndPrefixed(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 500; i++ {
		ref := NewReference("")
		assert.True(t, strings.HasPrefix(ref, DefaultReferencePrefix+"-"))
		_, dup := seen[ref]
		assert.False(t, dup, "duplicate reference %s", ref)
		seen[ref] = struct{}{}
	}
	assert.True(t, strings.HasPrefix(NewReference("crs"), "CRS-"))
}

func TestVerifyNotificationSignature(t *testing.T) {
	sum := sha512.Sum512([]byte("CRS-1" + "200" + "3000.00" + "server-key"))
	sig := hex.EncodeToString(sum[:])

	assert.True(t, VerifyNotificationSignature("CRS-1", "200", "3000.00", "server-key", sig))
	assert.True(t, VerifyNotificationSignature("CRS-1", "200", "3000.00", "server-key", strings.ToUpper(sig)))
	assert.False(t, VerifyNotificationSignature("CRS-1", "200", "3001.00", "server-key", sig))
	assert.False(t, VerifyNotificationSignature("CRS-1", "200", "3000.00", "", sig))
	assert.False(t, VerifyNotificationSignature("CRS-1", "200", "3000.00", "server-key", ""))
}
