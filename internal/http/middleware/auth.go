package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"panes/internal/auth"
)

const (
	// PrincipalLocalKey is the locals key holding the verified caller id.
	PrincipalLocalKey = "principal_id"
	// CleanupKeyHeader carries the shared secret for the cleanup trigger.
	CleanupKeyHeader = "X-Cleanup-Key"
)

// Auth rejects requests without a valid bearer token and stores the
// resolved principal id under PrincipalLocalKey.
func Auth(v auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization format")
		}

		principal, err := v.Verify(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(PrincipalLocalKey, principal)
		return c.Next()
	}
}

// Principal returns the caller id stored by Auth, or "" on public routes.
func Principal(c *fiber.Ctx) string {
	id, _ := c.Locals(PrincipalLocalKey).(string)
	return id
}

// CleanupKey guards the cleanup trigger with a shared key. An empty key
// leaves the route open.
func CleanupKey(key string) fiber.Handler {
	if key == "" {
		return passThrough()
	}
	want := []byte(key)
	return func(c *fiber.Ctx) error {
		got := []byte(c.Get(CleanupKeyHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid cleanup key")
		}
		return c.Next()
	}
}
