// file: internals/features/finance/installments/money/amount.go
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

/* =========================================================
   Amount = nominal dalam satuan terkecil (minor unit).
   Semua hitungan uang di modul cicilan lewat tipe ini,
   float tidak pernah dipakai.
========================================================= */

// MinorDigits jumlah digit desimal satu minor unit (100 minor = 1 major).
// Untuk rupiah: 1 minor = 1 sen, jadi program bernominal rupiah utuh selalu kelipatan 100.
const MinorDigits int32 = 2

// RoundingStep: pembulatan cicilan ke ribuan minor unit terdekat (= Rp10).
const RoundingStep int64 = 1000

var ErrNegativeDecimal = errors.New("amount must not be negative")

// Amount disimpan sebagai BIGINT sen. Checkout gateway (Snap) hanya menerima rupiah utuh,
// nominal pecahan ditolak di sana.
type Amount int64

const Zero Amount = 0

func FromMinor(v int64) Amount { return Amount(v) }

func (a Amount) Minor() int64 { return int64(a) }

func (a Amount) Add(b Amount) Amount { return a + b }

func (a Amount) Sub(b Amount) Amount { return a - b }

// Cmp mengembalikan -1, 0, atau 1.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (a Amount) IsPositive() bool { return a > 0 }
func (a Amount) IsZero() bool     { return a == 0 }

func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// ScaleByRatio menghitung a × num / den lalu membulatkan (half away from zero)
// ke kelipatan RoundingStep terdekat. den harus > 0.
func (a Amount) ScaleByRatio(num, den int64) Amount {
	if den <= 0 {
		panic("money: ScaleByRatio with non-positive denominator")
	}
	q := decimal.NewFromInt(int64(a)).
		Mul(decimal.NewFromInt(num)).
		DivRound(decimal.NewFromInt(den*RoundingStep), 0)
	return Amount(q.IntPart() * RoundingStep)
}

// FloorRatio menghitung floor(a × num / den) tanpa pembulatan ribuan.
func (a Amount) FloorRatio(num, den int64) Amount {
	if den <= 0 {
		panic("money: FloorRatio with non-positive denominator")
	}
	q := decimal.NewFromInt(int64(a)).
		Mul(decimal.NewFromInt(num)).
		Div(decimal.NewFromInt(den)).
		Floor()
	return Amount(q.IntPart())
}

/* =========================================================
   Boundary: decimal <-> minor unit
========================================================= */

// FromDecimal mengubah nilai major (mis. 40000.005) ke minor unit,
// dibulatkan ke minor unit terdekat. Nilai negatif ditolak.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return 0, ErrNegativeDecimal
	}
	minor := d.Shift(MinorDigits).Round(0)
	if !minor.IsInteger() || minor.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return Amount(minor.IntPart()), nil
}

// ParseDecimal: versi string dari FromDecimal.
func ParseDecimal(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -MinorDigits)
}

// String menampilkan nilai major dengan MinorDigits digit desimal.
func (a Amount) String() string {
	return a.Decimal().StringFixed(MinorDigits)
}

/* =========================================================
   Persistence (BIGINT)
========================================================= */

func (a Amount) Value() (driver.Value, error) { return int64(a), nil }

func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*a = Amount(v)
	case int32:
		*a = Amount(v)
	case int:
		*a = Amount(v)
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return err
		}
		*a = Amount(d.IntPart())
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		*a = Amount(d.IntPart())
	case nil:
		*a = 0
	default:
		return fmt.Errorf("money: cannot scan %T into Amount", src)
	}
	return nil
}
