// file: internals/features/finance/installments/service/service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"magangku_backend/internals/features/finance/installments/model"
	"magangku_backend/internals/features/finance/installments/money"
)

type Config struct {
	ReconcileTolerance money.Amount
	Now                func() time.Time
}

// InstallmentService = permukaan operasi modul cicilan (dipakai controller & scheduler).
type InstallmentService struct {
	Store         Store
	Registrations RegistrationSource
	Gateway       CheckoutGateway // nil = tanpa checkout link

	tolerance money.Amount
	now       func() time.Time
}

func NewInstallmentService(store Store, regs RegistrationSource, gateway CheckoutGateway, cfg Config) *InstallmentService {
	tol := cfg.ReconcileTolerance
	if tol <= 0 {
		tol = DefaultReconcileTolerance
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &InstallmentService{
		Store:         store,
		Registrations: regs,
		Gateway:       gateway,
		tolerance:     tol,
		now:           now,
	}
}

/* =========================================================
   Create / read
========================================================= */

// CreatePayment idempotent: kalau registrasi sudah punya payment, yang lama dikembalikan.
func (s *InstallmentService) CreatePayment(ctx context.Context, registrationID uuid.UUID) (*model.InstallmentPayment, bool, error) {
	if registrationID == uuid.Nil {
		return nil, false, newValidation("registration_id", "required")
	}
	info, err := s.Registrations.FindRegistration(ctx, registrationID)
	if err != nil {
		return nil, false, err
	}
	if !info.TotalAmount.IsPositive() {
		return nil, false, newValidation("total_amount", "program total must be greater than zero")
	}
	if !model.IsValidPlan(info.Plan) {
		return nil, false, newValidation("installment_plan", fmt.Sprintf("unsupported plan %d", info.Plan))
	}

	p := &model.InstallmentPayment{
		InstallmentPaymentID:             uuid.New(),
		InstallmentPaymentRegistrationID: registrationID,
		InstallmentPaymentTotalAmount:    info.TotalAmount,
		InstallmentPaymentAmountPaid:     money.Zero,
		InstallmentPaymentPlan:           info.Plan,
		InstallmentPaymentStatus:         model.Pending,
		InstallmentPaymentVersion:        1,
	}
	out, created, err := s.Store.CreateIfAbsent(ctx, p)
	if err != nil {
		return nil, false, err
	}
	if created {
		log.Printf("[INSTALLMENT] created payment=%s registration=%s total=%s plan=%d",
			out.InstallmentPaymentID, registrationID, out.InstallmentPaymentTotalAmount, out.InstallmentPaymentPlan)
	}
	return out, created, nil
}

// EnsureForRegistration: kontak pertama dengan modul cicilan membuat payment secara implisit.
func (s *InstallmentService) EnsureForRegistration(ctx context.Context, registrationID uuid.UUID) (*model.InstallmentPayment, error) {
	p, err := s.Store.FindByRegistration(ctx, registrationID)
	var nf *NotFoundError
	if errors.As(err, &nf) {
		p, _, err = s.CreatePayment(ctx, registrationID)
	}
	return p, err
}

func (s *InstallmentService) GetLedger(ctx context.Context, id uuid.UUID) (*model.InstallmentPayment, error) {
	return s.Store.FindByID(ctx, id)
}

func (s *InstallmentService) ComputeNextInstallment(ctx context.Context, id uuid.UUID) (NextInstallment, error) {
	p, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return NextInstallment{}, err
	}
	return ComputeNext(p)
}

func (s *InstallmentService) ListPayments(ctx context.Context, f ListFilter) ([]model.InstallmentPayment, int64, error) {
	return s.Store.List(ctx, f)
}

func (s *InstallmentService) ListInvoices(ctx context.Context, id uuid.UUID) ([]model.InstallmentInvoice, error) {
	if _, err := s.Store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ListInvoices(ctx, id)
}

/* =========================================================
   Mutations
========================================================= */

type ManualPaymentInput struct {
	PaymentID   uuid.UUID
	Amount      money.Amount
	Method      string
	PaidOn      time.Time
	Notes       *string
	EvidenceURL *string
	Actor       string
}

var manualMethods = map[string]bool{
	model.MethodBankTransfer: true,
	model.MethodCash:         true,
	model.MethodQRIS:         true,
	model.MethodGateway:      true,
	model.MethodOther:        true,
}

// RecordManualPayment: entri admin tanpa evidence; precondition sama dengan ledger,
// nominal tetap harus sesuai jadwal cicilan (kecuali melunasi).
func (s *InstallmentService) RecordManualPayment(ctx context.Context, in ManualPaymentInput) (*model.InstallmentPayment, error) {
	method := strings.ToLower(strings.TrimSpace(in.Method))
	if !manualMethods[method] {
		return nil, newValidation("method", "unsupported payment method")
	}
	now := s.now()
	paidOn := in.PaidOn
	if paidOn.IsZero() {
		paidOn = now
	}
	if dateOnly(paidOn).After(dateOnly(now)) {
		return nil, newValidation("date", "payment date cannot be in the future")
	}
	d := datatypes.Date(dateOnly(paidOn))

	var from model.Status
	out, err := s.Store.Mutate(ctx, in.PaymentID, func(p *model.InstallmentPayment) (Mutation, error) {
		from = p.InstallmentPaymentStatus
		target, err := NextLegalStatus(p, in.Amount)
		if err != nil {
			return Mutation{}, err
		}
		if err := ReconcileAfter(p, in.Amount, target, s.tolerance); err != nil {
			return Mutation{}, err
		}
		return Mutation{}, ApplyVerifiedPayment(p, LedgerEntry{
			Amount:      in.Amount,
			Target:      target,
			Actor:       in.Actor,
			At:          now,
			Method:      &method,
			PaidOn:      &d,
			EvidenceURL: in.EvidenceURL,
			Notes:       in.Notes,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INSTALLMENT] manual payment=%s %s -> %s amount=%s actor=%s",
		in.PaymentID, from, out.InstallmentPaymentStatus, in.Amount, in.Actor)
	return out, nil
}

type VerifyInput struct {
	PaymentID       uuid.UUID
	Amount          money.Amount
	RequestedStatus model.Status
	Notes           *string
	EvidenceURL     *string
	Method          *string
	Actor           string
}

// VerifyPayment: reload → hitung ulang transisi → reconciliation → ledger, dalam satu transaksi.
func (s *InstallmentService) VerifyPayment(ctx context.Context, in VerifyInput) (*model.InstallmentPayment, error) {
	req := VerifyRequest{
		Amount:          in.Amount,
		RequestedStatus: in.RequestedStatus,
		Method:          in.Method,
		Notes:           in.Notes,
		EvidenceURL:     in.EvidenceURL,
		Actor:           in.Actor,
	}
	if in.RequestedStatus.Kind == model.KindCancelled && in.Notes != nil {
		req.Reason = *in.Notes
	}

	var from model.Status
	now := s.now()
	out, err := s.Store.Mutate(ctx, in.PaymentID, func(p *model.InstallmentPayment) (Mutation, error) {
		from = p.InstallmentPaymentStatus
		return Mutation{}, Verify(p, req, s.tolerance, now)
	})
	if err != nil {
		var ie *InconsistentLedgerError
		if errors.As(err, &ie) {
			log.Printf("[INSTALLMENT][RECONCILE] payment=%s needs manual reconciliation: %v", in.PaymentID, err)
		}
		return nil, err
	}
	log.Printf("[INSTALLMENT] verified payment=%s %s -> %s amount=%s actor=%s",
		in.PaymentID, from, out.InstallmentPaymentStatus, in.Amount, in.Actor)
	return out, nil
}

type InvoiceInput struct {
	PaymentID uuid.UUID
	DueDate   time.Time
	Notes     string
	Actor     string
}

/*
IssueInvoice: set due date cicilan berikutnya + catat row invoice.
Checkout gateway (kalau aktif) dipanggil sebelum lock; di dalam Mutate
planner dihitung ulang dan harus sama, kalau tidak → ConflictError.
*/
func (s *InstallmentService) IssueInvoice(ctx context.Context, in InvoiceInput) (*model.InstallmentPayment, *model.InstallmentInvoice, error) {
	today := s.now()

	snapshot, err := s.Store.FindByID(ctx, in.PaymentID)
	if err != nil {
		return nil, nil, err
	}
	planned, err := IssueInvoice(snapshot.Clone(), in.DueDate, in.Notes, in.Actor, today)
	if err != nil {
		return nil, nil, err
	}

	var checkout *CheckoutResult
	var orderID string
	if s.Gateway != nil {
		orderID = fmt.Sprintf("INST-%s-%d-%d", strings.Split(in.PaymentID.String(), "-")[0], planned.Number, today.Unix())
		cust := CustomerInput{}
		if info, err := s.Registrations.FindRegistration(ctx, snapshot.InstallmentPaymentRegistrationID); err == nil {
			cust = CustomerInput{FullName: info.FullName, Email: info.Email, Phone: info.Phone}
		}
		res, err := s.Gateway.CreateCheckout(ctx, CheckoutRequest{
			OrderID:     orderID,
			Amount:      planned.Amount,
			Description: fmt.Sprintf("Cicilan ke-%d", planned.Number),
			Customer:    cust,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("checkout gateway: %w", err)
		}
		checkout = &res
	}

	var invoice *model.InstallmentInvoice
	out, err := s.Store.Mutate(ctx, in.PaymentID, func(p *model.InstallmentPayment) (Mutation, error) {
		next, err := IssueInvoice(p, in.DueDate, in.Notes, in.Actor, today)
		if err != nil {
			return Mutation{}, err
		}
		if next != planned {
			return Mutation{}, &ConflictError{PaymentID: p.InstallmentPaymentID, Reason: "payment changed while issuing invoice"}
		}
		invoice = &model.InstallmentInvoice{
			InvoiceID:        uuid.New(),
			InvoicePaymentID: p.InstallmentPaymentID,
			InvoiceNumber:    next.Number,
			InvoiceAmount:    next.Amount,
			InvoiceDueDate:   *p.InstallmentPaymentDueDate,
			InvoiceNotes:     p.InstallmentPaymentInvoiceNotes,
			InvoiceActor:     strings.TrimSpace(in.Actor),
		}
		if checkout != nil {
			invoice.InvoiceOrderID = &orderID
			invoice.InvoiceCheckoutToken = &checkout.Token
			invoice.InvoiceCheckoutURL = &checkout.RedirectURL
			invoice.InvoiceGatewayPayload = datatypes.JSON(checkout.Payload)
		}
		return Mutation{Invoice: invoice}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[INSTALLMENT] invoice payment=%s number=%d amount=%s due=%s actor=%s",
		in.PaymentID, invoice.InvoiceNumber, invoice.InvoiceAmount, in.DueDate.Format("2006-01-02"), in.Actor)
	return out, invoice, nil
}

func (s *InstallmentService) CancelPayment(ctx context.Context, id uuid.UUID, reason, actor string) (*model.InstallmentPayment, error) {
	now := s.now()
	out, err := s.Store.Mutate(ctx, id, func(p *model.InstallmentPayment) (Mutation, error) {
		return Mutation{}, ApplyVerifiedPayment(p, LedgerEntry{
			Target: model.Cancelled,
			Actor:  actor,
			At:     now,
			Reason: reason,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INSTALLMENT] cancelled payment=%s actor=%s reason=%q", id, actor, reason)
	return out, nil
}

// MarkOverdue dipanggil trigger eksternal (scheduler / admin).
func (s *InstallmentService) MarkOverdue(ctx context.Context, id uuid.UUID, actor string) (*model.InstallmentPayment, error) {
	today := s.now()
	out, err := s.Store.Mutate(ctx, id, func(p *model.InstallmentPayment) (Mutation, error) {
		return Mutation{}, MarkOverdue(p, today, actor)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INSTALLMENT] overdue payment=%s status=%s actor=%s", id, out.InstallmentPaymentStatus, actor)
	return out, nil
}

func (s *InstallmentService) OverdueCandidates(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return s.Store.ListOverdueCandidates(ctx, s.now(), limit)
}
