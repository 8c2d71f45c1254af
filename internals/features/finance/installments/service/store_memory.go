// file: internals/features/finance/installments/service/store_memory.go
package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"magangku_backend/internals/features/finance/installments/model"
)

/*
MemoryStore = implementasi Store tanpa DB (dev lokal & test).
Serialisasi per payment pakai semaphore berbobot 1; Acquire dibatasi LockTimeout.
*/
type MemoryStore struct {
	LockTimeout time.Duration

	mu       sync.RWMutex
	payments map[uuid.UUID]*model.InstallmentPayment
	byReg    map[uuid.UUID]uuid.UUID
	invoices map[uuid.UUID][]model.InstallmentInvoice
	locks    map[uuid.UUID]*semaphore.Weighted
}

func NewMemoryStore(lockTimeout time.Duration) *MemoryStore {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &MemoryStore{
		LockTimeout: lockTimeout,
		payments:    map[uuid.UUID]*model.InstallmentPayment{},
		byReg:       map[uuid.UUID]uuid.UUID{},
		invoices:    map[uuid.UUID][]model.InstallmentInvoice{},
		locks:       map[uuid.UUID]*semaphore.Weighted{},
	}
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*model.InstallmentPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, &NotFoundError{Entity: "payment", ID: id.String()}
	}
	return p.Clone(), nil
}

func (s *MemoryStore) FindByRegistration(ctx context.Context, registrationID uuid.UUID) (*model.InstallmentPayment, error) {
	s.mu.RLock()
	id, ok := s.byReg[registrationID]
	s.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Entity: "payment for registration", ID: registrationID.String()}
	}
	return s.FindByID(ctx, id)
}

func (s *MemoryStore) CreateIfAbsent(_ context.Context, p *model.InstallmentPayment) (*model.InstallmentPayment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byReg[p.InstallmentPaymentRegistrationID]; ok {
		return s.payments[id].Clone(), false, nil
	}
	if p.InstallmentPaymentID == uuid.Nil {
		p.InstallmentPaymentID = uuid.New()
	}
	now := time.Now()
	cp := p.Clone()
	cp.CreatedAt, cp.UpdatedAt = now, now
	if cp.InstallmentPaymentVersion == 0 {
		cp.InstallmentPaymentVersion = 1
	}
	s.payments[cp.InstallmentPaymentID] = cp
	s.byReg[cp.InstallmentPaymentRegistrationID] = cp.InstallmentPaymentID
	s.locks[cp.InstallmentPaymentID] = semaphore.NewWeighted(1)
	return cp.Clone(), true, nil
}

func (s *MemoryStore) Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*model.InstallmentPayment, error) {
	s.mu.RLock()
	lock, ok := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Entity: "payment", ID: id.String()}
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.LockTimeout)
	defer cancel()
	if err := lock.Acquire(waitCtx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &ConflictError{PaymentID: id, Reason: "lock wait timed out"}
		}
		return nil, err
	}
	defer lock.Release(1)

	s.mu.RLock()
	cur := s.payments[id].Clone()
	s.mu.RUnlock()

	next := cur.Clone()
	mut, err := fn(next)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payments[id].InstallmentPaymentVersion != cur.InstallmentPaymentVersion {
		return nil, &ConflictError{PaymentID: id, Reason: "payment was modified concurrently"}
	}
	next.InstallmentPaymentVersion = cur.InstallmentPaymentVersion + 1
	next.UpdatedAt = time.Now()
	s.payments[id] = next
	if mut.Invoice != nil {
		inv := *mut.Invoice
		if inv.InvoiceID == uuid.Nil {
			inv.InvoiceID = uuid.New()
		}
		inv.InvoiceCreatedAt = next.UpdatedAt
		s.invoices[id] = append(s.invoices[id], inv)
	}
	return next.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, f ListFilter) ([]model.InstallmentPayment, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]model.InstallmentPayment, 0, len(s.payments))
	for _, p := range s.payments {
		if f.RegistrationID != nil && p.InstallmentPaymentRegistrationID != *f.RegistrationID {
			continue
		}
		if f.Status != nil && !statusMatches(p.InstallmentPaymentStatus, *f.Status) {
			continue
		}
		cp := p.Clone()
		cp.History = nil
		rows = append(rows, *cp)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })

	total := int64(len(rows))
	if f.Offset >= len(rows) {
		return []model.InstallmentPayment{}, total, nil
	}
	rows = rows[f.Offset:]
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	return rows, total, nil
}

func (s *MemoryStore) ListOverdueCandidates(_ context.Context, today time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cut := dateOnly(today)
	var ids []uuid.UUID
	for id, p := range s.payments {
		if !model.CanMarkOverdue(p.InstallmentPaymentStatus) {
			continue
		}
		if due := p.DueTime(); !due.IsZero() && dateOnly(due).Before(cut) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *MemoryStore) ListInvoices(_ context.Context, paymentID uuid.UUID) ([]model.InstallmentInvoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.invoices[paymentID]
	out := make([]model.InstallmentInvoice, len(src))
	for i := range src {
		out[len(src)-1-i] = src[i]
	}
	return out, nil
}

func statusMatches(s model.Status, filter string) bool {
	f := strings.ToLower(strings.TrimSpace(filter))
	if f == "" {
		return true
	}
	raw := s.String()
	if f == "installment" || f == "overdue" {
		return strings.HasPrefix(raw, f)
	}
	return raw == f
}

/* =========================================================
   Registrasi in-memory
========================================================= */

type MemoryRegistrations struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]model.RegistrationInfo
}

func NewMemoryRegistrations(rows ...model.RegistrationInfo) *MemoryRegistrations {
	r := &MemoryRegistrations{rows: map[uuid.UUID]model.RegistrationInfo{}}
	for _, row := range rows {
		r.Put(row)
	}
	return r
}

func (r *MemoryRegistrations) Put(info model.RegistrationInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[info.RegistrationID] = info
}

func (r *MemoryRegistrations) FindRegistration(_ context.Context, id uuid.UUID) (model.RegistrationInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.rows[id]
	if !ok {
		return model.RegistrationInfo{}, &NotFoundError{Entity: "registration", ID: id.String()}
	}
	return info, nil
}
