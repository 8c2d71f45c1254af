// internals/middlewares/auth/jwt_auth.go
package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"magangku_backend/internals/constants"
)

// Key c.Locals yang diisi AuthJWT
const (
	LocUserID   = "user_id"
	LocUserName = "user_name"
	LocRole     = "userRole"
	LocClaims   = "jwt_claims"
)

const (
	RoleAdmin   = constants.RoleAdmin
	RoleFinance = constants.RoleFinance
	RoleUser    = constants.RoleUser
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

		// 2) Parse + verifikasi algoritma (exp divalidasi jwt.MapClaims)
		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
		}
		c.Locals(LocClaims, claims)

		// user_id: ambil id/sub/user_id dalam urutan preferensi
		userID := firstClaim(claims, "id", "sub", "user_id")
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Invalid or missing user ID")
		}
		c.Locals(LocUserID, userID)

		if name := strClaim(claims, "user_name"); name != "" {
			c.Locals(LocUserName, name)
		}
		c.Locals(LocRole, pickRole(claims))

		return c.Next()
	}
}

// RequireRoles: 403 (pesan forbidden) kalau role token tidak termasuk roles.
func RequireRoles(forbidden string, roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(r)] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocRole).(string)
		if role == "" {
			return fiber.NewError(fiber.StatusUnauthorized, constants.ErrMissingRole)
		}
		if _, ok := allowed[role]; !ok {
			return fiber.NewError(fiber.StatusForbidden, forbidden)
		}
		return c.Next()
	}
}

// Actor = identitas yang dicatat di history ("user_name (user_id)" atau user_id saja).
func Actor(c *fiber.Ctx) string {
	id, _ := c.Locals(LocUserID).(string)
	if name, _ := c.Locals(LocUserName).(string); name != "" && id != "" {
		return name + " (" + id + ")"
	}
	return id
}

func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocUserID).(string)
	return id
}

func Role(c *fiber.Ctx) string {
	r, _ := c.Locals(LocRole).(string)
	return r
}

/* ======== Helpers ======== */

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

// pickRole: "role" langsung, kalau tidak ada ambil dari roles_global (admin > finance > user).
func pickRole(m jwt.MapClaims) string {
	if r := strings.ToLower(strClaim(m, "role")); r != "" {
		return r
	}
	has := map[string]bool{}
	switch t := m["roles_global"].(type) {
	case []any:
		for _, it := range t {
			if s, ok := it.(string); ok {
				has[strings.ToLower(strings.TrimSpace(s))] = true
			}
		}
	case []string:
		for _, s := range t {
			has[strings.ToLower(strings.TrimSpace(s))] = true
		}
	}
	for _, w := range []string{RoleAdmin, RoleFinance} {
		if has[w] {
			return w
		}
	}
	return RoleUser
}
