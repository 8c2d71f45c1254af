package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"magangku_backend/internals/features/finance/installments/model"
	"magangku_backend/internals/features/finance/installments/money"
)

const testActor = "admin-1"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc   *InstallmentService
	store *MemoryStore
	regs  *MemoryRegistrations
	clock *fakeClock
}

func newFixture(t *testing.T, gateway CheckoutGateway) *fixture {
	t.Helper()
	clock := newFakeClock()
	store := NewMemoryStore(200 * time.Millisecond)
	regs := NewMemoryRegistrations()
	svc := NewInstallmentService(store, regs, gateway, Config{Now: clock.Now})
	return &fixture{svc: svc, store: store, regs: regs, clock: clock}
}

// newPayment mendaftarkan registrasi baru lalu membuat payment-nya.
func (f *fixture) newPayment(t *testing.T, total int64, plan int) *model.InstallmentPayment {
	t.Helper()
	regID := uuid.New()
	f.regs.Put(model.RegistrationInfo{
		RegistrationID: regID,
		TotalAmount:    money.FromMinor(total),
		Plan:           plan,
		FullName:       "Sari Wulandari",
		Email:          "sari@example.com",
		Phone:          "08123456789",
	})
	p, created, err := f.svc.CreatePayment(context.Background(), regID)
	require.NoError(t, err)
	require.True(t, created)
	return p
}

func (f *fixture) verify(t *testing.T, id uuid.UUID, amount int64, status model.Status) *model.InstallmentPayment {
	t.Helper()
	p, err := f.svc.VerifyPayment(context.Background(), VerifyInput{
		PaymentID:       id,
		Amount:          money.FromMinor(amount),
		RequestedStatus: status,
		Actor:           testActor,
	})
	require.NoError(t, err)
	return p
}

// requireLedgerInvariants: jumlah delta = amount_paid, dan history bisa di-replay dari Pending.
func requireLedgerInvariants(t *testing.T, p *model.InstallmentPayment) {
	t.Helper()
	require.Equal(t, p.InstallmentPaymentAmountPaid, p.HistoryDeltaSum())
	require.True(t, p.InstallmentPaymentAmountPaid.Cmp(p.InstallmentPaymentTotalAmount) <= 0)

	cur := model.Pending
	for i, h := range p.History {
		require.Equal(t, cur, h.HistoryOldStatus, "history[%d] old status", i)
		if h.HistoryNewStatus.Kind != model.KindOverdue {
			require.True(t, model.CanTransition(cur, h.HistoryNewStatus, p.InstallmentPaymentPlan),
				"history[%d] %s -> %s", i, cur, h.HistoryNewStatus)
		}
		cur = h.HistoryNewStatus
	}
	require.Equal(t, cur, p.InstallmentPaymentStatus)
}

func paymentAt(status model.Status, total, paid int64, plan int) *model.InstallmentPayment {
	return &model.InstallmentPayment{
		InstallmentPaymentID:             uuid.New(),
		InstallmentPaymentRegistrationID: uuid.New(),
		InstallmentPaymentTotalAmount:    money.FromMinor(total),
		InstallmentPaymentAmountPaid:     money.FromMinor(paid),
		InstallmentPaymentPlan:           plan,
		InstallmentPaymentStatus:         status,
		InstallmentPaymentVersion:        1,
	}
}
