package auth

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"courseku_backend/internals/constants"
)

// Key c.Locals yang diisi AuthJWT.
const (
	LocUserID      = "user_id"
	LocEmail       = "email"
	LocUserName    = "user_name"
	LocRole        = "role"
	LocRolesGlobal = "roles_global"
)

type AuthJWTOpts struct {
	Secret              string
	AllowCookieFallback bool // pakai cookie access_token jika tidak ada Bearer
}

func AuthJWT(o AuthJWTOpts) fiber.Handler {
	secret := strings.TrimSpace(o.Secret)
	if secret == "" {
		panic("AuthJWT: Secret wajib diisi")
	}

	return func(c *fiber.Ctx) error {
		// 1) Ambil token: Authorization: Bearer xxx (atau cookie jika diizinkan)
		raw := ""
		if authz := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			raw = strings.Trim(strings.TrimSpace(authz[7:]), "\"'")
		} else if o.AllowCookieFallback {
			raw = strings.TrimSpace(c.Cookies("access_token"))
		}
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		// 2) Parse + verifikasi algoritma (exp divalidasi jwt.Parse)
		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			log.Printf("[WARN] token tidak valid: %v", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
		}

		// user_id: id/sub/user_id dalam urutan preferensi
		uid := firstClaim(claims, "id", "sub", "user_id")
		if _, err := uuid.Parse(uid); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Invalid or missing user ID")
		}
		c.Locals(LocUserID, uid)

		if v := strClaim(claims, "email"); v != "" {
			c.Locals(LocEmail, v)
		}
		if v := firstClaim(claims, "user_name", "name"); v != "" {
			c.Locals(LocUserName, v)
		}

		roles := readStringSlice(claims["roles_global"])
		c.Locals(LocRolesGlobal, roles)
		c.Locals(LocRole, legacyRole(strClaim(claims, "role"), roles))

		return c.Next()
	}
}

// IsOwnerGlobal: hanya owner platform (roles_global berisi "owner").
func IsOwnerGlobal() fiber.Handler {
	forbidden := constants.RoleErrorOwner("ini")

	return func(c *fiber.Ctx) error {
		roles, ok := c.Locals(LocRolesGlobal).([]string)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Roles claim tidak ditemukan")
		}
		for _, r := range roles {
			if strings.EqualFold(r, constants.RoleOwner) {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, forbidden)
	}
}

// util kecil untuk ambil string claim
func strClaim(m jwt.MapClaims, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstClaim(m jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v := strClaim(m, k); v != "" {
			return v
		}
	}
	return ""
}

// util: ubah nilai interface{} → []string (robust untuk []string atau []any)
func readStringSlice(v any) []string {
	out := make([]string, 0)
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, it := range t {
			if s, ok := it.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// legacyRole: "role" eksplisit menang, lalu roles_global (owner > admin > teacher > user).
func legacyRole(explicit string, global []string) string {
	if explicit != "" {
		return strings.ToLower(explicit)
	}
	has := map[string]struct{}{}
	for _, r := range global {
		has[strings.ToLower(r)] = struct{}{}
	}
	for _, w := range constants.RolePriority {
		if _, ok := has[w]; ok {
			return w
		}
	}
	return constants.RoleUser
}
