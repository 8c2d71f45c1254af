package helper

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// FiberErrorHandler: ErrorHandler app. *fiber.Error (dari middleware / fiber.NewError di handler)
// dirender ke shape ErrorResponse; selain itu 500 tanpa bocor pesan asli.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return JsonError(c, fe.Code, fe.Message)
	}
	log.Printf("[ERR] %s %s: %v", c.Method(), c.OriginalURL(), err)
	return JsonError(c, fiber.StatusInternalServerError, "")
}
