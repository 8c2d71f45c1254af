// file: internals/features/finance/installments/model/payment_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"magangku_backend/internals/features/finance/installments/money"
)

/* ===================== Enums (string) ===================== */

const (
	PlanFourInstallments = 4
	PlanSixInstallments  = 6
)

func IsValidPlan(n int) bool {
	return n == PlanFourInstallments || n == PlanSixInstallments
}

const (
	MethodBankTransfer = "bank_transfer"
	MethodCash         = "cash"
	MethodQRIS         = "qris"
	MethodGateway      = "gateway"
	MethodOther        = "other"
)

/* ===================== Model ===================== */

// InstallmentPayment = kewajiban biaya program untuk satu registrasi.
// TotalAmount & InstallmentPlan disalin dari program saat dibuat dan tidak pernah berubah.
type InstallmentPayment struct {
	InstallmentPaymentID             uuid.UUID `gorm:"column:installment_payment_id;type:uuid;default:gen_random_uuid();primaryKey" json:"installment_payment_id"`
	InstallmentPaymentRegistrationID uuid.UUID `gorm:"column:installment_payment_registration_id;type:uuid;not null;uniqueIndex:uq_installment_payment_registration" json:"installment_payment_registration_id"`

	InstallmentPaymentTotalAmount money.Amount `gorm:"column:installment_payment_total_amount_minor;type:bigint;not null;check:installment_payment_total_amount_minor > 0" json:"installment_payment_total_amount_minor"`
	InstallmentPaymentAmountPaid  money.Amount `gorm:"column:installment_payment_amount_paid_minor;type:bigint;not null;default:0;check:installment_payment_amount_paid_minor >= 0" json:"installment_payment_amount_paid_minor"`
	InstallmentPaymentPlan        int          `gorm:"column:installment_payment_plan;type:smallint;not null;check:installment_payment_plan IN (4,6)" json:"installment_payment_plan"`

	InstallmentPaymentStatus       Status          `gorm:"column:installment_payment_status;type:text;not null" json:"installment_payment_status"`
	InstallmentPaymentDueDate      *datatypes.Date `gorm:"column:installment_payment_due_date;type:date" json:"installment_payment_due_date,omitempty"`
	InstallmentPaymentInvoiceNotes *string         `gorm:"column:installment_payment_invoice_notes" json:"installment_payment_invoice_notes,omitempty"`

	// optimistic lock counter, naik 1 setiap mutasi
	InstallmentPaymentVersion int64 `gorm:"column:installment_payment_version;not null;default:1" json:"installment_payment_version"`

	History []InstallmentPaymentHistory `gorm:"foreignKey:HistoryPaymentID;references:InstallmentPaymentID" json:"history"`

	CreatedAt time.Time `gorm:"column:installment_payment_created_at;autoCreateTime" json:"installment_payment_created_at"`
	UpdatedAt time.Time `gorm:"column:installment_payment_updated_at;autoUpdateTime" json:"installment_payment_updated_at"`
}

func (InstallmentPayment) TableName() string { return "installment_payments" }

/* ===================== Helpers ===================== */

func (p *InstallmentPayment) Remaining() money.Amount {
	return p.InstallmentPaymentTotalAmount.Sub(p.InstallmentPaymentAmountPaid)
}

func (p *InstallmentPayment) IsSettled() bool {
	return p.Remaining().Cmp(money.Zero) <= 0
}

// DueTime mengembalikan due date sebagai time.Time (zero kalau belum diset).
func (p *InstallmentPayment) DueTime() time.Time {
	if p.InstallmentPaymentDueDate == nil {
		return time.Time{}
	}
	return time.Time(*p.InstallmentPaymentDueDate)
}

// HistoryDeltaSum menjumlahkan amount_delta seluruh history.
func (p *InstallmentPayment) HistoryDeltaSum() money.Amount {
	sum := money.Zero
	for _, h := range p.History {
		sum = sum.Add(h.HistoryAmountDelta)
	}
	return sum
}

// Clone: deep copy (history ikut), dipakai supaya mutasi gagal tidak bocor ke state asli.
func (p *InstallmentPayment) Clone() *InstallmentPayment {
	if p == nil {
		return nil
	}
	cp := *p
	if p.InstallmentPaymentDueDate != nil {
		d := *p.InstallmentPaymentDueDate
		cp.InstallmentPaymentDueDate = &d
	}
	if p.InstallmentPaymentInvoiceNotes != nil {
		n := *p.InstallmentPaymentInvoiceNotes
		cp.InstallmentPaymentInvoiceNotes = &n
	}
	if p.History != nil {
		cp.History = make([]InstallmentPaymentHistory, len(p.History))
		for i := range p.History {
			cp.History[i] = p.History[i].clone()
		}
	}
	return &cp
}
