package middleware

import (
	"fmt"

	"salesloom/utils"

	"github.com/gofiber/fiber/v2"
)

// BuilderBoundary contains panics from the sequence-builder handlers.
// Invariant violations inside the builder fail loud to Sentry but answer the
// request with a 500 instead of taking the whole server down, mirroring the
// error boundary the front-end wraps around the builder widget.
func BuilderBoundary() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				panicErr, ok := r.(error)
				if !ok {
					panicErr = fmt.Errorf("%v", r)
				}
				utils.LogError("builder_panic", panicErr, map[string]interface{}{
					"path":   c.Path(),
					"method": c.Method(),
				})
				err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "The sequence builder hit an unexpected error",
				})
			}
		}()
		return c.Next()
	}
}
