// file: internals/features/finance/installments/model/status.go
package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

/* =========================================================
   Status cicilan (tagged variant).
   Bentuk string ("installment_3") hanya dipakai di boundary
   DB/API lewat String() dan ParseStatus().
========================================================= */

type StatusKind uint8

const (
	KindPending StatusKind = iota + 1
	KindInstallment
	KindPaid
	KindOverdue
	KindCancelled
)

// Status.Index:
//   - Installment: nomor cicilan terakhir yang terverifikasi (1..N)
//   - Overdue: jumlah cicilan yang sudah terverifikasi saat jatuh tempo lewat (0..N)
type Status struct {
	Kind  StatusKind
	Index int
}

const (
	statusPending     = "pending"
	statusPaid        = "paid"
	statusCancelled   = "cancelled"
	statusOverdue     = "overdue"
	prefixInstallment = "installment_"
	prefixOverdue     = "overdue_"
)

var (
	Pending   = Status{Kind: KindPending}
	Paid      = Status{Kind: KindPaid}
	Cancelled = Status{Kind: KindCancelled}
)

func Installment(k int) Status { return Status{Kind: KindInstallment, Index: k} }

func Overdue(k int) Status { return Status{Kind: KindOverdue, Index: k} }

func (s Status) IsTerminal() bool { return s.Kind == KindPaid || s.Kind == KindCancelled }

func (s Status) IsZero() bool { return s.Kind == 0 }

// CurrentIndex = jumlah cicilan yang sudah dilewati (Pending = 0).
func (s Status) CurrentIndex() int {
	switch s.Kind {
	case KindInstallment, KindOverdue:
		return s.Index
	default:
		return 0
	}
}

func (s Status) String() string {
	switch s.Kind {
	case KindPending:
		return statusPending
	case KindInstallment:
		return prefixInstallment + strconv.Itoa(s.Index)
	case KindPaid:
		return statusPaid
	case KindCancelled:
		return statusCancelled
	case KindOverdue:
		if s.Index == 0 {
			return statusOverdue
		}
		return prefixOverdue + strconv.Itoa(s.Index)
	default:
		return ""
	}
}

// ParseStatus membaca bentuk string dan memvalidasi index terhadap plan (N).
// planCount <= 0 berarti index tidak dibatasi atas (dipakai saat N belum diketahui).
func ParseStatus(raw string, planCount int) (Status, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case statusPending:
		return Pending, nil
	case statusPaid:
		return Paid, nil
	case statusCancelled, "canceled":
		return Cancelled, nil
	case statusOverdue:
		return Overdue(0), nil
	}

	var (
		prefix string
		kind   StatusKind
		minIdx int
	)
	switch {
	case strings.HasPrefix(s, prefixInstallment):
		prefix, kind, minIdx = prefixInstallment, KindInstallment, 1
	case strings.HasPrefix(s, prefixOverdue):
		prefix, kind, minIdx = prefixOverdue, KindOverdue, 0
	default:
		return Status{}, fmt.Errorf("unknown payment status %q", raw)
	}

	k, err := strconv.Atoi(strings.TrimPrefix(s, prefix))
	if err != nil {
		return Status{}, fmt.Errorf("invalid payment status %q", raw)
	}
	if k < minIdx || (planCount > 0 && k > planCount) {
		return Status{}, fmt.Errorf("payment status %q out of range for %d installments", raw, planCount)
	}
	return Status{Kind: kind, Index: k}, nil
}

/* =========================================================
   Transition chart
========================================================= */

// LegalTargets mengembalikan semua status tujuan yang sah dari s untuk plan N,
// termasuk Cancelled. Overdue tidak termasuk (dipicu dari luar, lihat CanMarkOverdue).
func LegalTargets(s Status, planCount int) []Status {
	if s.IsTerminal() {
		return nil
	}
	k := s.CurrentIndex()
	out := make([]Status, 0, 3)
	if k < planCount {
		out = append(out, Installment(k+1))
	}
	out = append(out, Paid, Cancelled)
	return out
}

// CanTransition: from -> to sah menurut chart (Overdue dicek terpisah).
func CanTransition(from, to Status, planCount int) bool {
	for _, t := range LegalTargets(from, planCount) {
		if t == to {
			return true
		}
	}
	return false
}

// CanMarkOverdue: semua status non-terminal yang belum overdue.
func CanMarkOverdue(s Status) bool {
	return !s.IsTerminal() && s.Kind != KindOverdue
}

/* =========================================================
   Persistence (TEXT)
========================================================= */

func (s Status) Value() (driver.Value, error) {
	if s.IsZero() {
		return nil, fmt.Errorf("cannot persist empty payment status")
	}
	return s.String(), nil
}

func (s *Status) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Status", src)
	}
	parsed, err := ParseStatus(raw, 0)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b), 0)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
