package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig defines the config for CORS middleware
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	AllowedMethods   []string
	AllowedHeaders   []string
	MaxAge           int
}

// DefaultCORSConfig returns a default CORS config
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:           86400,
	}
}

// CORS returns a CORS middleware with the default config
func CORS() fiber.Handler {
	config := DefaultCORSConfig()

	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")

		allowed := ""
		for _, o := range config.AllowedOrigins {
			if o == "*" || o == origin {
				allowed = o
				break
			}
		}
		if allowed == "*" && config.AllowCredentials && origin != "" {
			allowed = origin
		}
		if allowed != "" {
			c.Set("Access-Control-Allow-Origin", allowed)
		}
		if config.AllowCredentials {
			c.Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Method() == fiber.MethodOptions {
			c.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
			c.Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
			c.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
