package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mortgage-service/internal/domain"
	apperrors "github.com/spec-kit/mortgage-service/pkg/util"
)

// RequireBorrower ensures a borrower is authenticated.
func RequireBorrower() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeBorrower {
			return apperrors.NewForbidden("borrower required")
		}
		return c.Next()
	}
}

// RequireOfficerRole ensures the officer principal has one of the allowed roles.
func RequireOfficerRole(allowed ...domain.OfficerRole) fiber.Handler {
	allowedSet := make(map[domain.OfficerRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeOfficer || principal.Officer == nil {
			return apperrors.NewForbidden("officer role required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Officer.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated (borrower or officer).
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
