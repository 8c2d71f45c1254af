package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_Arithmetic(t *testing.T) {
	a := FromMinor(4_000_000)
	b := FromMinor(1_000_000)

	assert.Equal(t, FromMinor(5_000_000), a.Add(b))
	assert.Equal(t, FromMinor(3_000_000), a.Sub(b))
	assert.Equal(t, FromMinor(-3_000_000), b.Sub(a))
	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, -1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(FromMinor(4_000_000)))
	assert.Equal(t, b, Min(a, b))
	assert.Equal(t, FromMinor(3_000_000), b.Sub(a).Abs())
}

func TestAmount_ScaleByRatio(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		num, den int64
		want     int64
	}{
		{"exact quarter", 4_000_000, 1, 4, 1_000_000},
		{"sixth rounds up", 4_000_000, 1, 6, 667_000},
		{"half thousand rounds away from zero", 2_666_000, 1, 4, 667_000},
		{"below half rounds down", 1_999_000, 1, 3, 666_000},
		{"small total rounds to zero", 1_000, 1, 6, 0},
		{"multi numerator", 4_000_000, 3, 4, 3_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromMinor(tt.amount).ScaleByRatio(tt.num, tt.den)
			assert.Equal(t, FromMinor(tt.want), got)
		})
	}
}

func TestAmount_FloorRatio(t *testing.T) {
	assert.Equal(t, FromMinor(1_333_333), FromMinor(4_000_000).FloorRatio(2, 6))
	assert.Equal(t, FromMinor(3_000_000), FromMinor(4_000_000).FloorRatio(3, 4))
	assert.Equal(t, Zero, FromMinor(4_000_000).FloorRatio(0, 4))
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"40000", 4_000_000, false},
		{"40000.00", 4_000_000, false},
		{"0.005", 1, false},
		{"0.004", 0, false},
		{"12.345", 1235, false},
		{"-1", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecimal(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, FromMinor(tt.want), got)
		})
	}
}

func TestAmount_DecimalRoundTrip(t *testing.T) {
	a := FromMinor(123_456)
	assert.Equal(t, "1234.56", a.String())
	assert.True(t, a.Decimal().Equal(decimal.RequireFromString("1234.56")))

	back, err := FromDecimal(a.Decimal())
	require.NoError(t, err)
	assert.Equal(t, a, back)
}

func TestAmount_Scan(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan(int64(42)))
	assert.Equal(t, FromMinor(42), a)

	require.NoError(t, a.Scan([]byte("1500")))
	assert.Equal(t, FromMinor(1500), a)

	require.NoError(t, a.Scan(nil))
	assert.Equal(t, Zero, a)

	assert.Error(t, a.Scan(3.14))

	v, err := FromMinor(7).Value()
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestAmount_RupiahUnits(t *testing.T) {
	// 1 minor = 1 sen, langkah pembulatan = Rp10
	assert.Equal(t, "10.00", FromMinor(RoundingStep).String())

	a, err := ParseDecimal("40000")
	require.NoError(t, err)
	assert.Equal(t, FromMinor(4_000_000), a)
	assert.Zero(t, a.Minor()%100)
}
