package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/utils"
)

// AttachJWTLocals copies the verified claims into request locals so handlers
// read userId/role without touching the token again. It also rejects
// deactivated accounts, so a valid cookie stops working the moment an admin
// flips is_active off.
func AttachJWTLocals(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Locals("user")
		if raw == nil {
			return fiber.ErrUnauthorized
		}

		token, ok := raw.(*jwt.Token)
		if !ok || token == nil {
			return fiber.ErrUnauthorized
		}

		claims, ok := token.Claims.(*utils.Claims)
		if !ok {
			return fiber.ErrUnauthorized
		}

		uid := strings.TrimSpace(claims.UserID)
		role := strings.ToLower(strings.TrimSpace(claims.Role))

		if uid == "" {
			return fiber.ErrUnauthorized
		}

		var u models.User
		if err := db.Select("id", "is_active").First(&u, "id = ?", uid).Error; err != nil {
			return fiber.ErrUnauthorized
		}
		if !u.IsActive {
			return fiber.NewError(fiber.StatusForbidden, "account is deactivated")
		}

		c.Locals("userId", uid)
		c.Locals("role", role)

		return c.Next()
	}
}
