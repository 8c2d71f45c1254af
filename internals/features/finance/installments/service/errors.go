// file: internals/features/finance/installments/service/errors.go
package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"magangku_backend/internals/features/finance/installments/model"
	"magangku_backend/internals/features/finance/installments/money"
)

/* =========================================================
   Taxonomy error modul cicilan.
   Semua operasi mengembalikan salah satu tipe di bawah
   (atau error infrastruktur yang dibungkus).
========================================================= */

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func newValidation(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

type InvalidTransitionError struct {
	From   model.Status
	To     model.Status
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

type OverpaymentError struct {
	Paid   money.Amount
	Amount money.Amount
	Total  money.Amount
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("overpayment: paid %s + %s exceeds total %s", e.Paid, e.Amount, e.Total)
}

// InconsistentLedgerError tidak pernah dikoreksi otomatis; harus ditangani manusia.
type InconsistentLedgerError struct {
	PaymentID uuid.UUID
	Expected  money.Amount
	Actual    money.Amount
	Tolerance money.Amount
}

func (e *InconsistentLedgerError) Error() string {
	return fmt.Sprintf("inconsistent ledger for payment %s: expected about %s paid, found %s (tolerance %s)",
		e.PaymentID, e.Expected, e.Actual, e.Tolerance)
}

// ConflictError: mutasi bersamaan terdeteksi, caller boleh reload + retry.
type ConflictError struct {
	PaymentID uuid.UUID
	Reason    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on payment %s: %s", e.PaymentID, e.Reason)
}

type SettledError struct {
	PaymentID uuid.UUID
	Reason    string
}

func (e *SettledError) Error() string {
	return fmt.Sprintf("payment %s settled: %s", e.PaymentID, e.Reason)
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

/* =========================================================
   Helpers
========================================================= */

// IsRetryable: hanya ConflictError yang aman di-retry setelah reload.
func IsRetryable(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

var errPlanExhausted = errors.New("plan exhausted")
var errInvalidInstallmentAmount = errors.New("invalid installment amount")
