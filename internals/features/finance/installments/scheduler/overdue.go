package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"magangku_backend/internals/features/finance/installments/model"
)

const OverdueActor = "system:overdue-scheduler"

// OverdueMarker = bagian InstallmentService yang dipakai scheduler.
type OverdueMarker interface {
	OverdueCandidates(ctx context.Context, limit int) ([]uuid.UUID, error)
	MarkOverdue(ctx context.Context, id uuid.UUID, actor string) (*model.InstallmentPayment, error)
}

type OverdueScheduler struct {
	Marker   OverdueMarker
	Interval time.Duration
	Batch    int
	Workers  int
}

// RunOnce: satu putaran scan. Gagal per payment hanya dicatat (putaran berikut akan mencoba lagi).
func (s *OverdueScheduler) RunOnce(ctx context.Context) (int, error) {
	batch := s.Batch
	if batch <= 0 {
		batch = 200
	}
	ids, err := s.Marker.OverdueCandidates(ctx, batch)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	workers := s.Workers
	if workers <= 0 {
		workers = 4
	}
	var marked atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			p, err := s.Marker.MarkOverdue(gctx, id, OverdueActor)
			if err != nil {
				log.Printf("[OVERDUE] skip payment=%s: %v", id, err)
				return nil
			}
			marked.Add(1)
			log.Printf("[OVERDUE] payment=%s -> %s", id, p.InstallmentPaymentStatus)
			return nil
		})
	}
	err = g.Wait()
	return int(marked.Load()), err
}

// Start menjalankan scan tiap Interval sampai ctx selesai. Interval <= 0 → tidak jalan.
func (s *OverdueScheduler) Start(ctx context.Context) {
	if s.Interval <= 0 {
		log.Println("[OVERDUE] scheduler nonaktif")
		return
	}
	go func() {
		t := time.NewTicker(s.Interval)
		defer t.Stop()
		for {
			log.Println("[OVERDUE] Menjalankan scan payment jatuh tempo...")
			runCtx, cancel := context.WithTimeout(ctx, s.Interval)
			n, err := s.RunOnce(runCtx)
			cancel()
			if err != nil {
				log.Printf("[OVERDUE ERROR] %v", err)
			} else {
				log.Printf("[OVERDUE] %d payment ditandai overdue", n)
			}

			select {
			case <-ctx.Done():
				log.Println("[OVERDUE] scheduler berhenti")
				return
			case <-t.C:
			}
		}
	}()
}
