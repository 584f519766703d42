package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/domain"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// RequireAuthority admits callers holding at least one of the given authorities.
// It must run after AuthMiddleware.Handle.
func RequireAuthority(required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		for _, name := range required {
			if domain.HasAuthority(principal.Authorities, name) {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient authority")
	}
}
