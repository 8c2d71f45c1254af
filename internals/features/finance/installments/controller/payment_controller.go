package controller

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"magangku_backend/internals/features/finance/installments/dto"
	"magangku_backend/internals/features/finance/installments/service"
	helper "magangku_backend/internals/helpers"
	authMw "magangku_backend/internals/middlewares/auth"
)

type InstallmentController struct {
	Svc *service.InstallmentService
}

func NewInstallmentController(svc *service.InstallmentService) *InstallmentController {
	return &InstallmentController{Svc: svc}
}

/* =========================================================
   ADMIN
========================================================= */

// POST /api/a/installments/payments
func (h *InstallmentController) CreatePayment(c *fiber.Ctx) error {
	var req dto.CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := dto.Validate(req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationFieldErrors(err))
	}

	p, created, err := h.Svc.CreatePayment(c.UserContext(), req.RegistrationID)
	if err != nil {
		return writeError(c, err)
	}
	if created {
		return helper.JsonCreated(c, "Payment cicilan dibuat", dto.FromPayment(p, true))
	}
	return helper.JsonOK(c, "Payment cicilan sudah ada", dto.FromPayment(p, true))
}

// GET /api/a/installments/payments?status=&registration_id=&page=&per_page=
func (h *InstallmentController) ListPayments(c *fiber.Ctx) error {
	pg := helper.ResolvePaging(c, 20, 200)

	status, err := dto.ParseStatusFilter(c.Query("status"))
	if err != nil {
		return helper.JsonValidationError(c, map[string][]string{"status": {err.Error()}})
	}
	f := service.ListFilter{Status: status, Offset: pg.Offset, Limit: pg.Limit}
	if raw := strings.TrimSpace(c.Query("registration_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return helper.JsonValidationError(c, map[string][]string{"registration_id": {"uuid"}})
		}
		f.RegistrationID = &id
	}

	rows, total, err := h.Svc.ListPayments(c.UserContext(), f)
	if err != nil {
		return writeError(c, err)
	}
	pagination := helper.BuildPaginationFromOffset(total, pg.Offset, pg.Limit)
	pagination.Count = len(rows)
	return helper.JsonList(c, "ok", dto.FromPayments(rows), pagination)
}

// GET /api/a/installments/payments/:id
func (h *InstallmentController) GetPayment(c *fiber.Ctx) error {
	id, err := paymentIDParam(c)
	if err != nil {
		return err
	}
	p, err := h.Svc.GetLedger(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.FromPayment(p, true))
}

// GET /api/a/installments/payments/:id/next
func (h *InstallmentController) GetNextInstallment(c *fiber.Ctx) error {
	id, err := paymentIDParam(c)
	if err != nil {
		return err
	}
	next, err := h.Svc.ComputeNextInstallment(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.FromNext(next))
}

// POST /api/a/installments/payments/:id/manual
func (h *InstallmentController) RecordManualPayment(c *fiber.Ctx) error {
	id, err := paymentIDParam(c)
	if err != nil {
		return err
	}
	var req dto.ManualPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := dto.Validate(req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationFieldErrors(err))
	}
	in, err := req.ToInput(id, authMw.Actor(c))
	if err != nil {
		return writeError(c, err)
	}

	p, err := h.Svc.RecordManualPayment(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return helper.JsonOK(c, "Pembayaran manual dicatat", dto.FromPayment(p, true))
}

// POST /api/a/installments/payments/:id/verify
func (h *InstallmentController) VerifyPayment(c *fiber.Ctx) error {
	id, err := paymentIDParam(c)
	if err != nil {
		return err
	}
	var req dto.VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := dto.Validate(req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationFieldErrors(err))
	}
	in, err := req.ToInput(id, authMw.Actor(c))
	if err != nil {
		return writeError(c, err)
	}

	p, err := h.Svc.VerifyPayment(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return helper.JsonOK(c, "Pembayaran terverifikasi", dto.FromPayment(p, true))
}

// POST /api/a/installments/payments/:id/invoice
func (h *InstallmentController) IssueInvoice(c *fiber.Ctx) error {
	id, err := paymentIDParam(c)
	if err != nil {
		return err
	}
	var req dto.IssueInvoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := dto.Validate(req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationFieldErrors(err))
	}
	in, err := req.ToInput(id, authMw.Actor(c))
	if err != nil {
		return writeError(c, err)
	}

	p, inv, err := h.Svc.IssueInvoice(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return helper.JsonCreated(c, "Invoice diterbitkan", fiber.Map{
		"payment": dto.FromPayment(p, false),
		"invoice": dto.FromInvoice(*inv),
	})
}

// GET /api/a/installments/payments/:id/invoices
func (h *InstallmentController) ListInvoices(c *fiber.Ctx) error {
	id, err := paymentIDParam(c)
	if err != nil {
		return err
	}
	rows, err := h.Svc.ListInvoices(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.FromInvoices(rows))
}

// POST /api/a/installments/payments/:id/cancel
func (h *InstallmentController) CancelPayment(c *fiber.Ctx) error {
	id, err := paymentIDParam(c)
	if err != nil {
		return err
	}
	var req dto.CancelPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := dto.Validate(req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationFieldErrors(err))
	}

	p, err := h.Svc.CancelPayment(c.UserContext(), id, req.Reason, authMw.Actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return helper.JsonOK(c, "Payment dibatalkan", dto.FromPayment(p, true))
}

// POST /api/a/installments/payments/:id/overdue
func (h *InstallmentController) MarkOverdue(c *fiber.Ctx) error {
	id, err := paymentIDParam(c)
	if err != nil {
		return err
	}
	p, err := h.Svc.MarkOverdue(c.UserContext(), id, authMw.Actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return helper.JsonOK(c, "Payment ditandai overdue", dto.FromPayment(p, true))
}

/* =========================================================
   USER (read-only)
========================================================= */

// GET /api/u/installments/registrations/:registration_id/payment
func (h *InstallmentController) GetMyPayment(c *fiber.Ctx) error {
	regID, err := uuid.Parse(strings.TrimSpace(c.Params("registration_id")))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "registration_id tidak valid")
	}

	info, err := h.Svc.Registrations.FindRegistration(c.UserContext(), regID)
	if err != nil {
		return writeError(c, err)
	}
	// registrasi milik user lain → 404 (jangan bocorkan keberadaannya)
	if info.UserID != nil && info.UserID.String() != authMw.UserID(c) {
		return helper.JsonError(c, fiber.StatusNotFound, "registrasi tidak ditemukan")
	}

	p, err := h.Svc.EnsureForRegistration(c.UserContext(), regID)
	if err != nil {
		return writeError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.FromPayment(p, true))
}

/* =========================================================
   Helpers
========================================================= */

func paymentIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "payment id tidak valid")
	}
	return id, nil
}

// writeError memetakan error modul cicilan → HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var (
		ve  *service.ValidationError
		ite *service.InvalidTransitionError
		oe  *service.OverpaymentError
		ie  *service.InconsistentLedgerError
		ce  *service.ConflictError
		se  *service.SettledError
		nf  *service.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		field := ve.Field
		if field == "" {
			field = "_"
		}
		return helper.JsonValidationError(c, map[string][]string{field: {ve.Message}})
	case errors.As(err, &ite):
		return helper.JsonErrorCode(c, fiber.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.As(err, &oe):
		return helper.JsonErrorCode(c, fiber.StatusUnprocessableEntity, "OVERPAYMENT", err.Error())
	case errors.As(err, &ie):
		return helper.JsonErrorCode(c, fiber.StatusConflict, "INCONSISTENT_LEDGER", err.Error())
	case errors.As(err, &ce):
		c.Set(fiber.HeaderRetryAfter, "1")
		return helper.JsonErrorCode(c, fiber.StatusConflict, "CONFLICT", err.Error())
	case errors.As(err, &se):
		return helper.JsonErrorCode(c, fiber.StatusConflict, "SETTLED", err.Error())
	case errors.As(err, &nf):
		return helper.JsonError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return helper.JsonErrorCode(c, fiber.StatusServiceUnavailable, "TIMEOUT", "request timed out")
	}
	log.Printf("[INSTALLMENT][ERR] %s %s: %v", c.Method(), c.OriginalURL(), err)
	return helper.JsonError(c, fiber.StatusInternalServerError, "Internal Server Error")
}
