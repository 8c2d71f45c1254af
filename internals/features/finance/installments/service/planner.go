// file: internals/features/finance/installments/service/planner.go
package service

import (
	"magangku_backend/internals/features/finance/installments/model"
	"magangku_backend/internals/features/finance/installments/money"
)

// NextInstallment = hasil planner. Settled=true berarti tidak ada sisa tagihan.
type NextInstallment struct {
	Number  int          `json:"number,omitempty"`
	Amount  money.Amount `json:"amount_minor,omitempty"`
	Settled bool         `json:"settled"`
}

/*
ComputeNext adalah satu-satunya sumber hitungan cicilan berikutnya
(tampilan, invoice, verifikasi semuanya lewat sini). Pure, tidak memutasi p.

  - remaining <= 0               → Settled
  - sisa 1 cicilan               → amount = remaining (menyerap residu pembulatan)
  - selain itu                   → remaining / sisaCicilan, dibulatkan ke ribuan, clamp ke remaining
*/
func ComputeNext(p *model.InstallmentPayment) (NextInstallment, error) {
	if p.IsSettled() {
		return NextInstallment{Settled: true}, nil
	}
	remaining := p.Remaining()
	if p.InstallmentPaymentStatus.Kind == model.KindCancelled {
		return NextInstallment{}, &SettledError{PaymentID: p.InstallmentPaymentID, Reason: "payment cancelled"}
	}

	current := p.InstallmentPaymentStatus.CurrentIndex()
	left := p.InstallmentPaymentPlan - current
	if left <= 0 {
		return NextInstallment{}, &SettledError{PaymentID: p.InstallmentPaymentID, Reason: errPlanExhausted.Error()}
	}

	var amount money.Amount
	if left == 1 {
		amount = remaining
	} else {
		amount = money.Min(remaining.ScaleByRatio(1, int64(left)), remaining)
	}
	if amount.Cmp(money.Zero) <= 0 {
		return NextInstallment{}, newValidation("amount", errInvalidInstallmentAmount.Error())
	}

	return NextInstallment{Number: current + 1, Amount: amount}, nil
}

// ExpectedPaidSoFar = floor(total × currentIndex / N), dipakai reconciliation guard.
func ExpectedPaidSoFar(p *model.InstallmentPayment) money.Amount {
	if p.InstallmentPaymentPlan <= 0 {
		return money.Zero
	}
	k := int64(p.InstallmentPaymentStatus.CurrentIndex())
	return p.InstallmentPaymentTotalAmount.FloorRatio(k, int64(p.InstallmentPaymentPlan))
}
