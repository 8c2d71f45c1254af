package route

import (
	"github.com/gofiber/fiber/v2"

	installmentController "magangku_backend/internals/features/finance/installments/controller"
	"magangku_backend/internals/features/finance/installments/service"
)

// InstallmentUserRoutes: read-only untuk peserta. Mount: InstallmentUserRoutes(app.Group("/api/u"), svc)
func InstallmentUserRoutes(r fiber.Router, svc *service.InstallmentService) {
	ctl := installmentController.NewInstallmentController(svc)

	r.Get("/installments/registrations/:registration_id/payment", ctl.GetMyPayment)
}
