package middleware

import (
	"context"

	"sales-arena/shared/config"
	"sales-arena/shared/models"
	"sales-arena/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Locals keys set by AuthMiddleware.
const (
	LocalSellerID = "user_id"
	LocalRole     = "user_role"
	LocalEmail    = "user_email"
	LocalToken    = "token"
)

// SessionStore looks up live sessions. It is implemented by the redis client.
type SessionStore interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
}

func AuthMiddleware(cfg *config.Config, sessions SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.UnauthorizedResponse(c, "Authorization header required")
		}

		token := utils.ExtractTokenFromHeader(authHeader)
		if token == "" {
			return utils.UnauthorizedResponse(c, "Invalid authorization header format")
		}

		claims, err := utils.ValidateJWT(token, cfg)
		if err != nil {
			return utils.UnauthorizedResponse(c, "Invalid token")
		}

		// A logout deletes the session, revoking the token before it expires.
		session, err := sessions.GetSession(c.UserContext(), token)
		if err != nil || session.SellerID != claims.SellerID {
			return utils.UnauthorizedResponse(c, "Session expired or invalid")
		}

		c.Locals(LocalSellerID, claims.SellerID)
		c.Locals(LocalRole, claims.Role)
		c.Locals(LocalEmail, claims.Email)
		c.Locals(LocalToken, token)

		return c.Next()
	}
}

func RoleMiddleware(allowedRoles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userRole, ok := c.Locals(LocalRole).(models.Role)
		if !ok {
			return utils.UnauthorizedResponse(c, "User role not found")
		}

		for _, role := range allowedRoles {
			if userRole == role {
				return c.Next()
			}
		}

		return utils.ForbiddenResponse(c, "Insufficient permissions")
	}
}

// SellerID returns the authenticated seller.
func SellerID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(LocalSellerID).(uuid.UUID)
	return id, ok
}

func IsAdmin(c *fiber.Ctx) bool {
	role, _ := c.Locals(LocalRole).(models.Role)
	return role == models.RoleAdmin
}

// CanAccess reports whether the caller may read or change data owned by sellerID:
// admins may access every seller, collaborators only themselves.
func CanAccess(c *fiber.Ctx, sellerID uuid.UUID) bool {
	if IsAdmin(c) {
		return true
	}
	id, ok := SellerID(c)
	return ok && id == sellerID
}
