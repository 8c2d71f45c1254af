// file: internals/route/index.go
package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"magangku_backend/internals/configs"
	installmentRoute "magangku_backend/internals/features/finance/installments/route"
	"magangku_backend/internals/features/finance/installments/service"
	authMw "magangku_backend/internals/middlewares/auth"
)

var startTime time.Time

func SetupRoutes(app *fiber.App, svc *service.InstallmentService, pingDB func() error) {
	startTime = time.Now()

	BaseRoutes(app, pingDB)

	jwtOpts := authMw.AuthJWTOpts{
		Secret:              configs.JWTSecret,
		AllowCookieFallback: true,
	}

	// ===================== PRIVATE (USER) =====================
	log.Println("[INFO] Setting up PRIVATE group...")
	private := app.Group("/api/u", authMw.AuthJWT(jwtOpts))

	// ===================== ADMIN / FINANCE =====================
	log.Println("[INFO] Setting up ADMIN group (Auth + RoleCheck per route)...")
	admin := app.Group("/api/a", authMw.AuthJWT(jwtOpts))

	// ===================== MOUNT ROUTES =====================
	log.Println("[INFO] Mounting Installment routes...")
	installmentRoute.InstallmentUserRoutes(private, svc)
	installmentRoute.InstallmentAdminRoutes(admin, svc)
}
