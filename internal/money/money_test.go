package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRoundHalfUp(t *testing.T) {
	cases := map[string]string{
		"10.005":  "10.01",
		"10.004":  "10.00",
		"0.125":   "0.13",
		"99.9949": "99.99",
		"15.00":   "15.00",
	}
	for in, want := range cases {
		d := decimal.RequireFromString(in)
		require.Equal(t, want, Round(d).StringFixed(2), "rounding %s", in)
	}
}

func TestFloorMinor(t *testing.T) {
	require.Equal(t, "33.33", FloorMinor(decimal.RequireFromString("33.3399")).StringFixed(2))
	require.Equal(t, "33.33", FloorMinor(decimal.RequireFromString("33.33")).StringFixed(2))
}

func TestMinorUnit(t *testing.T) {
	require.Equal(t, "0.01", MinorUnit().StringFixed(2))
}

func TestMax(t *testing.T) {
	a := decimal.RequireFromString("1.50")
	b := decimal.RequireFromString("2.00")
	require.True(t, Max(a, b).Equal(b))
	require.True(t, Max(b, a).Equal(b))
}
