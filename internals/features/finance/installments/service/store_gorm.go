// file: internals/features/finance/installments/service/store_gorm.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"magangku_backend/internals/features/finance/installments/model"
)

/* =========================================================
   GormStore (PostgreSQL)
   - row lock: SELECT ... FOR UPDATE dengan SET LOCAL lock_timeout
   - optimistic: UPDATE ... WHERE version = ?
========================================================= */

type GormStore struct {
	DB          *gorm.DB
	LockTimeout time.Duration
}

func NewGormStore(db *gorm.DB, lockTimeout time.Duration) *GormStore {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &GormStore{DB: db, LockTimeout: lockTimeout}
}

func preloadHistory(db *gorm.DB) *gorm.DB {
	return db.Order("history_timestamp ASC")
}

func (s *GormStore) FindByID(ctx context.Context, id uuid.UUID) (*model.InstallmentPayment, error) {
	var m model.InstallmentPayment
	if err := s.DB.WithContext(ctx).
		Preload("History", preloadHistory).
		First(&m, "installment_payment_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "payment", ID: id.String()}
		}
		return nil, classifyPGError(err, id)
	}
	return &m, nil
}

func (s *GormStore) FindByRegistration(ctx context.Context, registrationID uuid.UUID) (*model.InstallmentPayment, error) {
	var m model.InstallmentPayment
	if err := s.DB.WithContext(ctx).
		Preload("History", preloadHistory).
		First(&m, "installment_payment_registration_id = ?", registrationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "payment for registration", ID: registrationID.String()}
		}
		return nil, classifyPGError(err, uuid.Nil)
	}
	return &m, nil
}

func (s *GormStore) CreateIfAbsent(ctx context.Context, p *model.InstallmentPayment) (*model.InstallmentPayment, bool, error) {
	res := s.DB.WithContext(ctx).
		Omit("History").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "installment_payment_registration_id"}},
			DoNothing: true,
		}).
		Create(p)
	if res.Error != nil {
		return nil, false, classifyPGError(res.Error, p.InstallmentPaymentID)
	}
	if res.RowsAffected == 0 {
		existing, err := s.FindByRegistration(ctx, p.InstallmentPaymentRegistrationID)
		return existing, false, err
	}
	created, err := s.FindByID(ctx, p.InstallmentPaymentID)
	return created, true, err
}

func (s *GormStore) Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*model.InstallmentPayment, error) {
	var out *model.InstallmentPayment

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// batas tunggu row lock; lewat dari ini PG melempar 55P03
		if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.LockTimeout.Milliseconds())).Error; err != nil {
			return err
		}

		var cur model.InstallmentPayment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("History", preloadHistory).
			First(&cur, "installment_payment_id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "payment", ID: id.String()}
			}
			return err
		}

		next := cur.Clone()
		mut, err := fn(next)
		if err != nil {
			return err
		}

		res := tx.Model(&model.InstallmentPayment{}).
			Where("installment_payment_id = ? AND installment_payment_version = ?", id, cur.InstallmentPaymentVersion).
			Updates(map[string]any{
				"installment_payment_amount_paid_minor": next.InstallmentPaymentAmountPaid,
				"installment_payment_status":            next.InstallmentPaymentStatus,
				"installment_payment_due_date":          next.InstallmentPaymentDueDate,
				"installment_payment_invoice_notes":     next.InstallmentPaymentInvoiceNotes,
				"installment_payment_version":           gorm.Expr("installment_payment_version + 1"),
				"installment_payment_updated_at":        time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &ConflictError{PaymentID: id, Reason: "payment was modified concurrently"}
		}
		next.InstallmentPaymentVersion = cur.InstallmentPaymentVersion + 1

		if added := appendedHistory(&cur, next); len(added) > 0 {
			if err := tx.Create(&added).Error; err != nil {
				return err
			}
		}
		if mut.Invoice != nil {
			if err := tx.Create(mut.Invoice).Error; err != nil {
				return err
			}
		}

		out = next
		return nil
	})
	if err != nil {
		return nil, classifyPGError(err, id)
	}
	return out, nil
}

// appendedHistory: entri yang ditambahkan fn. History append-only, jadi cukup ambil ekornya.
func appendedHistory(cur, next *model.InstallmentPayment) []model.InstallmentPaymentHistory {
	if len(next.History) <= len(cur.History) {
		return nil
	}
	return next.History[len(cur.History):]
}

func (s *GormStore) List(ctx context.Context, f ListFilter) ([]model.InstallmentPayment, int64, error) {
	q := s.DB.WithContext(ctx).Model(&model.InstallmentPayment{})
	if f.Status != nil && strings.TrimSpace(*f.Status) != "" {
		st := strings.ToLower(strings.TrimSpace(*f.Status))
		switch st {
		case "installment", "overdue":
			q = q.Where("installment_payment_status LIKE ?", st+"%")
		default:
			q = q.Where("installment_payment_status = ?", st)
		}
	}
	if f.RegistrationID != nil {
		q = q.Where("installment_payment_registration_id = ?", *f.RegistrationID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.InstallmentPayment
	if err := q.Order("installment_payment_created_at DESC").
		Offset(f.Offset).Limit(f.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *GormStore) ListOverdueCandidates(ctx context.Context, today time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.DB.WithContext(ctx).
		Model(&model.InstallmentPayment{}).
		Where("installment_payment_due_date < ?", dateOnly(today)).
		Where("installment_payment_status NOT IN ?", []string{model.Paid.String(), model.Cancelled.String()}).
		Where("installment_payment_status NOT LIKE ?", "overdue%").
		Order("installment_payment_due_date ASC").
		Limit(limit).
		Pluck("installment_payment_id", &ids).Error
	return ids, err
}

func (s *GormStore) ListInvoices(ctx context.Context, paymentID uuid.UUID) ([]model.InstallmentInvoice, error) {
	var rows []model.InstallmentInvoice
	err := s.DB.WithContext(ctx).
		Where("invoice_payment_id = ?", paymentID).
		Order("invoice_created_at DESC").
		Find(&rows).Error
	return rows, err
}

/* =========================================================
   PG error mapping (pgx/libpq)
========================================================= */

const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// classifyPGError: lock timeout / serialization / deadlock → ConflictError (retryable).
func classifyPGError(err error, id uuid.UUID) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case pgLockNotAvailable:
		return &ConflictError{PaymentID: id, Reason: "lock wait timed out"}
	case pgSerializationFailure, pgDeadlockDetected:
		return &ConflictError{PaymentID: id, Reason: "concurrent transaction aborted"}
	}
	return err
}
