package money

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRound2HalfUp(t *testing.T) {
	cases := map[string]string{
		"1.005":  "1.01",
		"1.004":  "1",
		"2.675":  "2.68",
		"10":     "10",
		"0.125":  "0.13",
		"99.999": "100",
	}
	for in, want := range cases {
		got := Round2(decimal.RequireFromString(in))
		require.True(t, got.Equal(decimal.RequireFromString(want)), "round %s: got %s want %s", in, got, want)
	}
}

func TestParse(t *testing.T) {
	v, ok := Parse(" 107.00 ")
	require.True(t, ok)
	require.Equal(t, "107", v.String())

	for _, bad := range []string{"", "  ", "abc", "-1", "NaN", "1.2.3"} {
		_, ok := Parse(bad)
		require.False(t, ok, "expected %q to be rejected", bad)
	}
}

func TestRateCoercion(t *testing.T) {
	require.True(t, Rate("abc").IsZero())
	require.True(t, Rate("-3").IsZero())
	require.True(t, Rate("1e999999999").IsZero())
	require.Equal(t, "8.875", Rate("8.875").String())
}

func TestFormat(t *testing.T) {
	require.Equal(t, "$7.50", Format("$", decimal.RequireFromString("7.5")))
	require.Equal(t, "$0.00", Format("$", decimal.Zero))
}

func TestParseRejectsOversizedInput(t *testing.T) {
	for _, in := range []string{
		"1e999999999",
		"1e13",
		"9e-999999999",
		"1000000000000.01",
		strings.Repeat("9", 40),
	} {
		start := time.Now()
		_, ok := Parse(in)
		require.False(t, ok, "expected %q to be rejected", in)
		require.Less(t, time.Since(start), 50*time.Millisecond, in)
	}

	v, ok := Parse("1e12")
	require.True(t, ok)
	require.True(t, v.Equal(MaxAmount))
	v, ok = Parse("125e-2")
	require.True(t, ok)
	require.Equal(t, "1.25", v.String())
}
