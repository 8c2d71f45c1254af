package dto

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"magangku_backend/internals/features/finance/installments/model"
	"magangku_backend/internals/features/finance/installments/money"
	"magangku_backend/internals/features/finance/installments/service"
)

const dateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// nama field di error = nama json
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func Validate(s any) error { return validate.Struct(s) }

/* =========================================================
   REQUEST DTOs
   Nominal diterima sebagai desimal major unit ("1000000.00" atau 1000000),
   dikonversi ke minor unit lewat money.FromDecimal.
========================================================= */

type CreatePaymentRequest struct {
	RegistrationID uuid.UUID `json:"registration_id" validate:"required"`
}

type ManualPaymentRequest struct {
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Method      string           `json:"method" validate:"required,oneof=bank_transfer cash qris gateway other"`
	Date        *string          `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes       *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
	EvidenceURL *string          `json:"evidence_url,omitempty" validate:"omitempty,url,max=2048"`
}

func (r ManualPaymentRequest) ToInput(id uuid.UUID, actor string) (service.ManualPaymentInput, error) {
	amt, err := parseAmount(r.Amount)
	if err != nil {
		return service.ManualPaymentInput{}, err
	}
	var paidOn time.Time
	if r.Date != nil {
		if paidOn, err = time.Parse(dateLayout, strings.TrimSpace(*r.Date)); err != nil {
			return service.ManualPaymentInput{}, &service.ValidationError{Field: "date", Message: "use YYYY-MM-DD"}
		}
	}
	return service.ManualPaymentInput{
		PaymentID:   id,
		Amount:      amt,
		Method:      r.Method,
		PaidOn:      paidOn,
		Notes:       trimPtr(r.Notes),
		EvidenceURL: trimPtr(r.EvidenceURL),
		Actor:       actor,
	}, nil
}

type VerifyPaymentRequest struct {
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	RequestedStatus string           `json:"requested_status" validate:"required,max=32"`
	Method          *string          `json:"method,omitempty" validate:"omitempty,oneof=bank_transfer cash qris gateway other"`
	Notes           *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
	EvidenceURL     *string          `json:"evidence_url,omitempty" validate:"omitempty,url,max=2048"`
}

// ToInput: amount boleh kosong hanya untuk cancelled. Index di luar plan ditolak ledger.
func (r VerifyPaymentRequest) ToInput(id uuid.UUID, actor string) (service.VerifyInput, error) {
	st, err := model.ParseStatus(r.RequestedStatus, 0)
	if err != nil {
		return service.VerifyInput{}, &service.ValidationError{Field: "requested_status", Message: err.Error()}
	}
	amt := money.Zero
	if r.Amount != nil || st.Kind != model.KindCancelled {
		if amt, err = parseAmount(r.Amount); err != nil {
			return service.VerifyInput{}, err
		}
	}
	return service.VerifyInput{
		PaymentID:       id,
		Amount:          amt,
		RequestedStatus: st,
		Notes:           trimPtr(r.Notes),
		EvidenceURL:     trimPtr(r.EvidenceURL),
		Method:          trimPtr(r.Method),
		Actor:           actor,
	}, nil
}

type IssueInvoiceRequest struct {
	DueDate string `json:"due_date" validate:"required,datetime=2006-01-02"`
	Notes   string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (r IssueInvoiceRequest) ToInput(id uuid.UUID, actor string) (service.InvoiceInput, error) {
	due, err := time.Parse(dateLayout, strings.TrimSpace(r.DueDate))
	if err != nil {
		return service.InvoiceInput{}, &service.ValidationError{Field: "due_date", Message: "use YYYY-MM-DD"}
	}
	return service.InvoiceInput{PaymentID: id, DueDate: due, Notes: r.Notes, Actor: actor}, nil
}

type CancelPaymentRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

func parseAmount(d *decimal.Decimal) (money.Amount, error) {
	if d == nil {
		return money.Zero, &service.ValidationError{Field: "amount", Message: "required"}
	}
	amt, err := money.FromDecimal(*d)
	if err != nil {
		return money.Zero, &service.ValidationError{Field: "amount", Message: err.Error()}
	}
	return amt, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

/* =========================================================
   RESPONSE DTOs
   Nominal dikirim dua bentuk: *_minor (int) dan desimal string.
========================================================= */

type NextInstallmentResponse struct {
	Number      int    `json:"number,omitempty"`
	AmountMinor int64  `json:"amount_minor,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Settled     bool   `json:"settled"`
}

type HistoryResponse struct {
	HistoryID          uuid.UUID `json:"history_id"`
	HistoryTimestamp   time.Time `json:"history_timestamp"`
	HistoryOldStatus   string    `json:"history_old_status"`
	HistoryNewStatus   string    `json:"history_new_status"`
	HistoryAmountMinor int64     `json:"history_amount_delta_minor"`
	HistoryAmount      string    `json:"history_amount_delta"`
	HistoryActor       string    `json:"history_actor"`
	HistoryMethod      *string   `json:"history_method,omitempty"`
	HistoryPaidOn      *string   `json:"history_paid_on,omitempty"`
	HistoryEvidenceURL *string   `json:"history_evidence_url,omitempty"`
	HistoryNotes       *string   `json:"history_notes,omitempty"`
}

type PaymentResponse struct {
	InstallmentPaymentID             uuid.UUID `json:"installment_payment_id"`
	InstallmentPaymentRegistrationID uuid.UUID `json:"installment_payment_registration_id"`

	TotalAmountMinor int64  `json:"installment_payment_total_amount_minor"`
	TotalAmount      string `json:"installment_payment_total_amount"`
	AmountPaidMinor  int64  `json:"installment_payment_amount_paid_minor"`
	AmountPaid       string `json:"installment_payment_amount_paid"`
	RemainingMinor   int64  `json:"installment_payment_remaining_minor"`
	Remaining        string `json:"installment_payment_remaining"`

	Plan         int     `json:"installment_payment_plan"`
	Status       string  `json:"installment_payment_status"`
	CurrentIndex int     `json:"installment_payment_current_index"`
	DueDate      *string `json:"installment_payment_due_date,omitempty"`
	InvoiceNotes *string `json:"installment_payment_invoice_notes,omitempty"`
	Version      int64   `json:"installment_payment_version"`

	History []HistoryResponse        `json:"history,omitempty"`
	Next    *NextInstallmentResponse `json:"next_installment,omitempty"`

	CreatedAt time.Time `json:"installment_payment_created_at"`
	UpdatedAt time.Time `json:"installment_payment_updated_at"`
}

type InvoiceResponse struct {
	InvoiceID          uuid.UUID `json:"invoice_id"`
	InvoicePaymentID   uuid.UUID `json:"invoice_payment_id"`
	InvoiceNumber      int       `json:"invoice_number"`
	InvoiceAmountMinor int64     `json:"invoice_amount_minor"`
	InvoiceAmount      string    `json:"invoice_amount"`
	InvoiceDueDate     string    `json:"invoice_due_date"`
	InvoiceNotes       *string   `json:"invoice_notes,omitempty"`
	InvoiceActor       string    `json:"invoice_actor"`
	InvoiceOrderID     *string   `json:"invoice_order_id,omitempty"`
	InvoiceCheckoutURL *string   `json:"invoice_checkout_url,omitempty"`
	InvoiceToken       *string   `json:"invoice_checkout_token,omitempty"`
	InvoiceCreatedAt   time.Time `json:"invoice_created_at"`
}

/* =========================================================
   MAPPERS
========================================================= */

func FromNext(n service.NextInstallment) NextInstallmentResponse {
	if n.Settled {
		return NextInstallmentResponse{Settled: true}
	}
	return NextInstallmentResponse{
		Number:      n.Number,
		AmountMinor: n.Amount.Minor(),
		Amount:      n.Amount.String(),
	}
}

func FromHistory(h model.InstallmentPaymentHistory) HistoryResponse {
	out := HistoryResponse{
		HistoryID:          h.HistoryID,
		HistoryTimestamp:   h.HistoryTimestamp,
		HistoryOldStatus:   h.HistoryOldStatus.String(),
		HistoryNewStatus:   h.HistoryNewStatus.String(),
		HistoryAmountMinor: h.HistoryAmountDelta.Minor(),
		HistoryAmount:      h.HistoryAmountDelta.String(),
		HistoryActor:       h.HistoryActor,
		HistoryMethod:      h.HistoryMethod,
		HistoryEvidenceURL: h.HistoryEvidenceURL,
		HistoryNotes:       h.HistoryNotes,
	}
	if h.HistoryPaidOn != nil {
		s := time.Time(*h.HistoryPaidOn).Format(dateLayout)
		out.HistoryPaidOn = &s
	}
	return out
}

// FromPayment: withHistory=false untuk list (history tidak di-preload).
func FromPayment(p *model.InstallmentPayment, withHistory bool) PaymentResponse {
	rem := p.Remaining()
	out := PaymentResponse{
		InstallmentPaymentID:             p.InstallmentPaymentID,
		InstallmentPaymentRegistrationID: p.InstallmentPaymentRegistrationID,
		TotalAmountMinor:                 p.InstallmentPaymentTotalAmount.Minor(),
		TotalAmount:                      p.InstallmentPaymentTotalAmount.String(),
		AmountPaidMinor:                  p.InstallmentPaymentAmountPaid.Minor(),
		AmountPaid:                       p.InstallmentPaymentAmountPaid.String(),
		RemainingMinor:                   rem.Minor(),
		Remaining:                        rem.String(),
		Plan:                             p.InstallmentPaymentPlan,
		Status:                           p.InstallmentPaymentStatus.String(),
		CurrentIndex:                     p.InstallmentPaymentStatus.CurrentIndex(),
		InvoiceNotes:                     p.InstallmentPaymentInvoiceNotes,
		Version:                          p.InstallmentPaymentVersion,
		CreatedAt:                        p.CreatedAt,
		UpdatedAt:                        p.UpdatedAt,
	}
	if due := p.DueTime(); !due.IsZero() {
		s := due.Format(dateLayout)
		out.DueDate = &s
	}
	if withHistory {
		out.History = make([]HistoryResponse, 0, len(p.History))
		for _, h := range p.History {
			out.History = append(out.History, FromHistory(h))
		}
	}
	// cicilan berikutnya ikut ditampilkan (dari planner yang sama dengan verifikasi)
	if next, err := service.ComputeNext(p); err == nil {
		n := FromNext(next)
		out.Next = &n
	}
	return out
}

func FromPayments(rows []model.InstallmentPayment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, FromPayment(&rows[i], false))
	}
	return out
}

func FromInvoice(inv model.InstallmentInvoice) InvoiceResponse {
	return InvoiceResponse{
		InvoiceID:          inv.InvoiceID,
		InvoicePaymentID:   inv.InvoicePaymentID,
		InvoiceNumber:      inv.InvoiceNumber,
		InvoiceAmountMinor: inv.InvoiceAmount.Minor(),
		InvoiceAmount:      inv.InvoiceAmount.String(),
		InvoiceDueDate:     time.Time(inv.InvoiceDueDate).Format(dateLayout),
		InvoiceNotes:       inv.InvoiceNotes,
		InvoiceActor:       inv.InvoiceActor,
		InvoiceOrderID:     inv.InvoiceOrderID,
		InvoiceCheckoutURL: inv.InvoiceCheckoutURL,
		InvoiceToken:       inv.InvoiceCheckoutToken,
		InvoiceCreatedAt:   inv.InvoiceCreatedAt,
	}
}

func FromInvoices(rows []model.InstallmentInvoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromInvoice(r))
	}
	return out
}

// ParseStatusFilter: nilai filter list yang diterima (prefix "installment"/"overdue" atau status lengkap).
func ParseStatusFilter(raw string) (*string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil, nil
	}
	if s == "installment" || s == "overdue" {
		return &s, nil
	}
	st, err := model.ParseStatus(s, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid status filter: %w", err)
	}
	v := st.String()
	return &v, nil
}
