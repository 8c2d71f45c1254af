package route

import (
	"github.com/gofiber/fiber/v2"

	"magangku_backend/internals/constants"
	installmentController "magangku_backend/internals/features/finance/installments/controller"
	"magangku_backend/internals/features/finance/installments/service"
	middlewares "magangku_backend/internals/middlewares"
	authMw "magangku_backend/internals/middlewares/auth"
)

/*
Admin routes: Installment payments
Contoh mount: InstallmentAdminRoutes(app.Group("/api/a"), svc)
Final paths:
- /api/a/installments/payments ...
*/
func InstallmentAdminRoutes(r fiber.Router, svc *service.InstallmentService) {
	ctl := installmentController.NewInstallmentController(svc)

	pay := r.Group("/installments/payments",
		authMw.RequireRoles(constants.RoleErrorFinanceStaff("cicilan"), constants.FinanceStaff...),
		middlewares.PaymentMutationRateLimiter(),
	)

	pay.Get("/", ctl.ListPayments)
	pay.Post("/", ctl.CreatePayment)

	pay.Get("/:id", ctl.GetPayment)
	pay.Get("/:id/next", ctl.GetNextInstallment)
	pay.Get("/:id/invoices", ctl.ListInvoices)

	pay.Post("/:id/manual", ctl.RecordManualPayment)
	pay.Post("/:id/verify", ctl.VerifyPayment)
	pay.Post("/:id/invoice", ctl.IssueInvoice)
	pay.Post("/:id/cancel", ctl.CancelPayment)
	pay.Post("/:id/overdue", ctl.MarkOverdue)
}
