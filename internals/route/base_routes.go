package routes

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// BaseRoutes: root + health. pingDB nil = mode memory store (tanpa DB).
func BaseRoutes(app *fiber.App, pingDB func() error) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Magangku installment service running 🚀")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "Connected"
		serverStatus := "OK"
		httpStatus := fiber.StatusOK

		switch {
		case pingDB == nil:
			dbStatus = "Memory store"
		case pingDB() != nil:
			dbStatus = "Database connection error"
			serverStatus = "DOWN"
			httpStatus = fiber.StatusServiceUnavailable
		}

		return c.Status(httpStatus).JSON(fiber.Map{
			"status":         serverStatus,
			"database":       dbStatus,
			"server_time":    time.Now().Format(time.RFC3339),
			"uptime_seconds": int(time.Since(startTime).Seconds()),
			"environment":    os.Getenv("RAILWAY_ENVIRONMENT"),
		})
	})
}
