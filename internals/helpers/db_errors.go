package helper

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsUniqueViolation: true kalau error berasal dari unique constraint.
// TranslateError di-set saat ConnectDB, tapi pesan mentah tetap dicek
// untuk driver yang tidak menerjemahkan (mis. sqlite di test).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "sqlstate 23505")
}
