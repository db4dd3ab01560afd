package middleware

import (
	"strings"

	"salesloom/config"
	"salesloom/models"
	"salesloom/utils"

	"github.com/gofiber/fiber/v2"
)

// Protected authenticates the request and stashes the user in locals. Tokens
// are minted elsewhere; this service only verifies them.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := requestToken(c)
		if token == "" {
			return unauthorized(c, "Authorization required")
		}

		claims, err := utils.ParseJWTToken(token)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		var user models.User
		if err := config.DB.First(&user, claims.UserID).Error; err != nil {
			return unauthorized(c, "User not found")
		}
		if !user.IsActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Account is not active",
			})
		}
		// Token version mismatch means the token was revoked
		if claims.TokenVersion != user.TokenVersion {
			return unauthorized(c, "Invalid token version")
		}

		c.Locals("user", &user)
		c.Locals("userID", user.ID)
		c.Locals("sessionID", claims.SessionID)

		return c.Next()
	}
}

// requestToken pulls the bearer token out of the Authorization header, then
// the access_token cookie, then the access_token query param. The query
// fallback exists for browser websocket upgrades, which cannot set headers.
func requestToken(c *fiber.Ctx) string {
	if header := c.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	if cookie := c.Cookies("access_token"); cookie != "" {
		return cookie
	}
	return c.Query("access_token")
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
}
