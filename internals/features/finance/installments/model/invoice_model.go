// file: internals/features/finance/installments/model/invoice_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"magangku_backend/internals/features/finance/installments/money"
)

// InstallmentInvoice = log tagihan yang pernah diterbitkan admin.
// Tidak menyentuh saldo; hanya mencatat nomor cicilan, nominal, dan due date.
type InstallmentInvoice struct {
	InvoiceID        uuid.UUID `gorm:"column:invoice_id;type:uuid;default:gen_random_uuid();primaryKey" json:"invoice_id"`
	InvoicePaymentID uuid.UUID `gorm:"column:invoice_payment_id;type:uuid;not null;index" json:"invoice_payment_id"`

	InvoiceNumber  int            `gorm:"column:invoice_number;not null" json:"invoice_number"`
	InvoiceAmount  money.Amount   `gorm:"column:invoice_amount_minor;type:bigint;not null" json:"invoice_amount_minor"`
	InvoiceDueDate datatypes.Date `gorm:"column:invoice_due_date;type:date;not null" json:"invoice_due_date"`
	InvoiceNotes   *string        `gorm:"column:invoice_notes" json:"invoice_notes,omitempty"`
	InvoiceActor   string         `gorm:"column:invoice_actor;not null" json:"invoice_actor"`

	// Midtrans Snap (opsional)
	InvoiceOrderID        *string        `gorm:"column:invoice_order_id" json:"invoice_order_id,omitempty"`
	InvoiceCheckoutToken  *string        `gorm:"column:invoice_checkout_token" json:"invoice_checkout_token,omitempty"`
	InvoiceCheckoutURL    *string        `gorm:"column:invoice_checkout_url" json:"invoice_checkout_url,omitempty"`
	InvoiceGatewayPayload datatypes.JSON `gorm:"column:invoice_gateway_payload;type:jsonb" json:"invoice_gateway_payload,omitempty"`

	InvoiceCreatedAt time.Time `gorm:"column:invoice_created_at;autoCreateTime" json:"invoice_created_at"`
}

func (InstallmentInvoice) TableName() string { return "installment_invoices" }
