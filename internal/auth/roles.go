package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vodhub/internal/domain"
	apperrors "github.com/spec-kit/vodhub/pkg/util/errorutil"
)

// RequireRole ensures the gate-verified caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[claims.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireNamedUser rejects local (username-less) identities.
func RequireNamedUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if claims.Username == "" {
			return apperrors.NewForbidden("a user account is required")
		}
		return c.Next()
	}
}
