// file: internals/features/finance/installments/service/verification.go
package service

import (
	"fmt"
	"time"

	"magangku_backend/internals/features/finance/installments/model"
	"magangku_backend/internals/features/finance/installments/money"
)

// DefaultReconcileTolerance: selisih maksimal amount_paid vs jadwal (minor unit).
const DefaultReconcileTolerance money.Amount = 1000

type VerifyRequest struct {
	Amount          money.Amount
	RequestedStatus model.Status
	Method          *string
	Notes           *string
	EvidenceURL     *string
	Reason          string // untuk RequestedStatus = Cancelled
	Actor           string
}

// ExpectedTransition menghitung ulang transisi sah dari state terbaru (bukan dari cache caller).
// Caller hanya boleh mengonfirmasi hasil ini atau Cancelled.
func ExpectedTransition(p *model.InstallmentPayment, req VerifyRequest) error {
	from := p.InstallmentPaymentStatus
	if err := ensureMutable(p, req.RequestedStatus); err != nil {
		return err
	}
	if !model.CanTransition(from, req.RequestedStatus, p.InstallmentPaymentPlan) {
		return &InvalidTransitionError{From: from, To: req.RequestedStatus}
	}
	if req.RequestedStatus.Kind == model.KindCancelled {
		return nil
	}

	derived, err := NextLegalStatus(p, req.Amount)
	if err != nil {
		return err
	}
	if derived != req.RequestedStatus {
		return &InvalidTransitionError{From: from, To: req.RequestedStatus, Reason: "expected " + derived.String()}
	}
	return nil
}

// Reconcile: amount_paid harus dekat dengan total/N × currentIndex.
// Gagal → InconsistentLedgerError, tidak pernah dikoreksi otomatis.
func Reconcile(p *model.InstallmentPayment, tolerance money.Amount) error {
	expected := ExpectedPaidSoFar(p)
	diff := p.InstallmentPaymentAmountPaid.Sub(expected).Abs()
	if diff.Cmp(tolerance) > 0 {
		return &InconsistentLedgerError{
			PaymentID: p.InstallmentPaymentID,
			Expected:  expected,
			Actual:    p.InstallmentPaymentAmountPaid,
			Tolerance: tolerance,
		}
	}
	return nil
}

// ReconcileAfter: state sesudah pembayaran juga harus sesuai jadwal, supaya nominal yang
// melenceng tidak sempat masuk ledger. Target Paid selalu sesuai (amount_paid = total).
// amount harus sudah lolos NextLegalStatus (amount <= sisa).
func ReconcileAfter(p *model.InstallmentPayment, amount money.Amount, target model.Status, tolerance money.Amount) error {
	if target.Kind != model.KindInstallment || p.InstallmentPaymentPlan <= 0 {
		return nil
	}
	after := p.InstallmentPaymentAmountPaid.Add(amount)
	expected := p.InstallmentPaymentTotalAmount.FloorRatio(int64(target.Index), int64(p.InstallmentPaymentPlan))
	if after.Sub(expected).Abs().Cmp(tolerance) > 0 {
		return newValidation("amount", fmt.Sprintf(
			"off schedule: installment %d expects about %s paid in total, got %s (next installment %s)",
			target.Index, expected, after, expected.Sub(p.InstallmentPaymentAmountPaid)))
	}
	return nil
}

// Verify menjalankan langkah 2-4 workflow verifikasi pada state yang sudah di-reload.
// Langkah 1 (reload) & atomicity dipegang Store.Mutate.
func Verify(p *model.InstallmentPayment, req VerifyRequest, tolerance money.Amount, at time.Time) error {
	if err := ExpectedTransition(p, req); err != nil {
		return err
	}
	if err := Reconcile(p, tolerance); err != nil {
		return err
	}
	if err := ReconcileAfter(p, req.Amount, req.RequestedStatus, tolerance); err != nil {
		return err
	}
	return ApplyVerifiedPayment(p, LedgerEntry{
		Amount:      req.Amount,
		Target:      req.RequestedStatus,
		Actor:       req.Actor,
		At:          at,
		Reason:      req.Reason,
		Method:      req.Method,
		EvidenceURL: req.EvidenceURL,
		Notes:       req.Notes,
	})
}
