// file: internals/features/finance/installments/service/store.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"magangku_backend/internals/features/finance/installments/model"
)

// Mutation = efek samping tambahan yang ikut di-commit bersama mutasi payment.
type Mutation struct {
	Invoice *model.InstallmentInvoice
}

// MutateFunc menerima salinan state terbaru. Error → tidak ada yang disimpan.
type MutateFunc func(p *model.InstallmentPayment) (Mutation, error)

type ListFilter struct {
	Status         *string
	RegistrationID *uuid.UUID
	Offset         int
	Limit          int
}

/*
Store = penyimpanan ledger.
Mutate wajib serial per payment id: reload → fn → simpan,
dengan version check; yang kalah dapat ConflictError.
Menunggu lock dibatasi waktu (lock timeout) → ConflictError.
*/
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.InstallmentPayment, error)
	FindByRegistration(ctx context.Context, registrationID uuid.UUID) (*model.InstallmentPayment, error)
	// CreateIfAbsent mengembalikan payment yang sudah ada bila registrasi sudah punya payment.
	CreateIfAbsent(ctx context.Context, p *model.InstallmentPayment) (*model.InstallmentPayment, bool, error)
	Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*model.InstallmentPayment, error)
	List(ctx context.Context, f ListFilter) ([]model.InstallmentPayment, int64, error)
	ListOverdueCandidates(ctx context.Context, today time.Time, limit int) ([]uuid.UUID, error)
	ListInvoices(ctx context.Context, paymentID uuid.UUID) ([]model.InstallmentInvoice, error)
}

// RegistrationSource = collaborator read-only (registrasi + program).
type RegistrationSource interface {
	FindRegistration(ctx context.Context, registrationID uuid.UUID) (model.RegistrationInfo, error)
}
