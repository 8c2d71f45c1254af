// file: internals/features/finance/installments/service/ledger.go
package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"magangku_backend/internals/features/finance/installments/model"
	"magangku_backend/internals/features/finance/installments/money"
)

// LedgerEntry = satu mutasi yang mau dicatat ke ledger.
type LedgerEntry struct {
	Amount money.Amount
	Target model.Status
	Actor  string
	At     time.Time

	Reason      string // wajib kalau Target = Cancelled
	Method      *string
	PaidOn      *datatypes.Date
	EvidenceURL *string
	Notes       *string
}

// ensureMutable: Paid & Cancelled menolak semua mutasi (bukan no-op).
func ensureMutable(p *model.InstallmentPayment, target model.Status) error {
	switch p.InstallmentPaymentStatus.Kind {
	case model.KindPaid:
		return &SettledError{PaymentID: p.InstallmentPaymentID, Reason: "payment already paid"}
	case model.KindCancelled:
		return &InvalidTransitionError{From: p.InstallmentPaymentStatus, To: target, Reason: "payment cancelled"}
	}
	return nil
}

// NextLegalStatus menurunkan satu-satunya status tujuan yang sah untuk pembayaran sebesar amount.
// Paid kalau amount melunasi sisa, selain itu Installment(k+1).
func NextLegalStatus(p *model.InstallmentPayment, amount money.Amount) (model.Status, error) {
	if err := ensureMutable(p, model.Paid); err != nil {
		return model.Status{}, err
	}
	if !amount.IsPositive() {
		return model.Status{}, newValidation("amount", "must be greater than zero")
	}

	// bandingkan dengan sisa, bukan paid+amount (amount dari luar bisa mendekati MaxInt64)
	paid := p.InstallmentPaymentAmountPaid
	total := p.InstallmentPaymentTotalAmount
	remaining := total.Sub(paid)
	switch amount.Cmp(remaining) {
	case 1:
		return model.Status{}, &OverpaymentError{Paid: paid, Amount: amount, Total: total}
	case 0:
		return model.Paid, nil
	}

	k := p.InstallmentPaymentStatus.CurrentIndex()
	if k >= p.InstallmentPaymentPlan {
		return model.Status{}, &InvalidTransitionError{
			From:   p.InstallmentPaymentStatus,
			To:     model.Paid,
			Reason: "final installment must settle the remaining balance",
		}
	}
	return model.Installment(k + 1), nil
}

/*
ApplyVerifiedPayment: all-or-nothing.
Semua precondition dicek dulu; p baru diubah setelah semuanya lolos,
jadi kalau error, p tidak berubah sama sekali.
*/
func ApplyVerifiedPayment(p *model.InstallmentPayment, e LedgerEntry) error {
	if strings.TrimSpace(e.Actor) == "" {
		return newValidation("actor", "required")
	}
	if err := ensureMutable(p, e.Target); err != nil {
		return err
	}

	from := p.InstallmentPaymentStatus

	if e.Target.Kind == model.KindCancelled {
		if strings.TrimSpace(e.Reason) == "" {
			return newValidation("reason", "cancellation requires a reason")
		}
		if !e.Amount.IsZero() {
			return newValidation("amount", "cancellation must not carry an amount")
		}
		reason := strings.TrimSpace(e.Reason)
		e.Notes = &reason
		appendHistory(p, from, e)
		return nil
	}

	if !model.CanTransition(from, e.Target, p.InstallmentPaymentPlan) {
		return &InvalidTransitionError{From: from, To: e.Target}
	}
	derived, err := NextLegalStatus(p, e.Amount)
	if err != nil {
		return err
	}
	if derived != e.Target {
		return &InvalidTransitionError{From: from, To: e.Target, Reason: "expected " + derived.String()}
	}

	appendHistory(p, from, e)
	return nil
}

// MarkOverdue: dipicu dari luar (scheduler/admin) saat due date lewat tanpa pelunasan.
func MarkOverdue(p *model.InstallmentPayment, today time.Time, actor string) error {
	if strings.TrimSpace(actor) == "" {
		return newValidation("actor", "required")
	}
	target := model.Overdue(p.InstallmentPaymentStatus.CurrentIndex())
	if err := ensureMutable(p, target); err != nil {
		return err
	}
	if !model.CanMarkOverdue(p.InstallmentPaymentStatus) {
		return &InvalidTransitionError{From: p.InstallmentPaymentStatus, To: target, Reason: "already overdue"}
	}
	due := p.DueTime()
	if due.IsZero() {
		return newValidation("due_date", "no due date issued")
	}
	if !dateOnly(due).Before(dateOnly(today)) {
		return newValidation("due_date", "due date has not passed")
	}

	appendHistory(p, p.InstallmentPaymentStatus, LedgerEntry{Target: target, Actor: actor, At: today})
	return nil
}

func appendHistory(p *model.InstallmentPayment, from model.Status, e LedgerEntry) {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	p.InstallmentPaymentAmountPaid = p.InstallmentPaymentAmountPaid.Add(e.Amount)
	p.InstallmentPaymentStatus = e.Target
	// tagihan yang dibayar sudah terpenuhi; due date berikutnya diterbitkan ulang lewat invoice
	if e.Amount.IsPositive() {
		p.InstallmentPaymentDueDate = nil
	}
	p.History = append(p.History, model.InstallmentPaymentHistory{
		HistoryID:          uuid.New(),
		HistoryPaymentID:   p.InstallmentPaymentID,
		HistoryTimestamp:   at.UTC(),
		HistoryOldStatus:   from,
		HistoryNewStatus:   e.Target,
		HistoryAmountDelta: e.Amount,
		HistoryActor:       strings.TrimSpace(e.Actor),
		HistoryMethod:      e.Method,
		HistoryPaidOn:      e.PaidOn,
		HistoryEvidenceURL: e.EvidenceURL,
		HistoryNotes:       e.Notes,
	})
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
