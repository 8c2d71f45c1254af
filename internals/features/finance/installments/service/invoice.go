// file: internals/features/finance/installments/service/invoice.go
package service

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"magangku_backend/internals/features/finance/installments/model"
)

/*
IssueInvoice hanya menjadwalkan due date cicilan berikutnya.
amount_paid & status tidak pernah disentuh.

Precondition:
  - dueDate > hari ini (strict)
  - status bukan Pending / Paid / Cancelled
  - planner harus menghasilkan cicilan berikutnya yang sah
*/
func IssueInvoice(p *model.InstallmentPayment, dueDate time.Time, notes, actor string, today time.Time) (NextInstallment, error) {
	if strings.TrimSpace(actor) == "" {
		return NextInstallment{}, newValidation("actor", "required")
	}
	if dueDate.IsZero() {
		return NextInstallment{}, newValidation("due_date", "required")
	}
	if !dateOnly(dueDate).After(dateOnly(today)) {
		return NextInstallment{}, newValidation("due_date", "must be later than today")
	}

	switch p.InstallmentPaymentStatus.Kind {
	case model.KindPaid:
		return NextInstallment{}, &SettledError{PaymentID: p.InstallmentPaymentID, Reason: "payment already paid"}
	case model.KindCancelled:
		return NextInstallment{}, &InvalidTransitionError{From: p.InstallmentPaymentStatus, To: p.InstallmentPaymentStatus, Reason: "payment cancelled"}
	case model.KindPending:
		return NextInstallment{}, newValidation("status", "cannot invoice a pending payment")
	}

	next, err := ComputeNext(p)
	if err != nil {
		return NextInstallment{}, err
	}
	if next.Settled {
		return NextInstallment{}, &SettledError{PaymentID: p.InstallmentPaymentID, Reason: "nothing left to bill"}
	}

	d := datatypes.Date(dateOnly(dueDate))
	p.InstallmentPaymentDueDate = &d
	if n := strings.TrimSpace(notes); n != "" {
		p.InstallmentPaymentInvoiceNotes = &n
	} else {
		p.InstallmentPaymentInvoiceNotes = nil
	}
	return next, nil
}
