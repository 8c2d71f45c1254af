// file: internals/features/finance/installments/model/history_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"magangku_backend/internals/features/finance/installments/money"
)

/*
  installment_payment_histories = jejak audit append-only.
  - Satu row per mutasi (verifikasi, manual, overdue, cancel).
  - SUM(amount_delta) harus selalu = amount_paid pada payment induk.
*/

type InstallmentPaymentHistory struct {
	HistoryID        uuid.UUID `gorm:"column:history_id;type:uuid;default:gen_random_uuid();primaryKey" json:"history_id"`
	HistoryPaymentID uuid.UUID `gorm:"column:history_payment_id;type:uuid;not null;index:idx_history_payment_time,priority:1" json:"history_payment_id"`

	HistoryTimestamp   time.Time    `gorm:"column:history_timestamp;not null;index:idx_history_payment_time,priority:2" json:"history_timestamp"`
	HistoryOldStatus   Status       `gorm:"column:history_old_status;type:text;not null" json:"history_old_status"`
	HistoryNewStatus   Status       `gorm:"column:history_new_status;type:text;not null" json:"history_new_status"`
	HistoryAmountDelta money.Amount `gorm:"column:history_amount_delta_minor;type:bigint;not null;check:history_amount_delta_minor >= 0" json:"history_amount_delta_minor"`
	HistoryActor       string       `gorm:"column:history_actor;not null" json:"history_actor"`

	// Detail opsional (manual/verifikasi)
	HistoryMethod      *string         `gorm:"column:history_method" json:"history_method,omitempty"`
	HistoryPaidOn      *datatypes.Date `gorm:"column:history_paid_on;type:date" json:"history_paid_on,omitempty"`
	HistoryEvidenceURL *string         `gorm:"column:history_evidence_url" json:"history_evidence_url,omitempty"`
	HistoryNotes       *string         `gorm:"column:history_notes" json:"history_notes,omitempty"`
}

func (InstallmentPaymentHistory) TableName() string { return "installment_payment_histories" }

func (h InstallmentPaymentHistory) clone() InstallmentPaymentHistory {
	cp := h
	cp.HistoryMethod = clonePtr(h.HistoryMethod)
	cp.HistoryPaidOn = clonePtr(h.HistoryPaidOn)
	cp.HistoryEvidenceURL = clonePtr(h.HistoryEvidenceURL)
	cp.HistoryNotes = clonePtr(h.HistoryNotes)
	return cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
