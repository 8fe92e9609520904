package numcodec_test

import (
	"math"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/coredb-io/kernel/numcodec"
)

func TestClassOrdering(t *testing.T) {
	values := []numcodec.Number{
		numcodec.FromFloat(math.NaN()),
		numcodec.FromFloat(math.Inf(-1)),
		numcodec.FromInt(-100),
		numcodec.FromInt(-1),
		numcodec.FromInt(0),
		numcodec.FromInt(1),
		numcodec.FromInt(100),
		numcodec.FromFloat(math.Inf(1)),
	}
	for i := 1; i < len(values); i++ {
		require.True(t, numcodec.Less(values[i-1], values[i]),
			"expected value %d to sort before %d", i-1, i)
	}
}

func TestZeroVariantsEqual(t *testing.T) {
	require.True(t, numcodec.Equal(numcodec.FromInt(0), numcodec.FromFloat(0.0)))
	require.True(t, numcodec.Equal(numcodec.FromInt(0), numcodec.FromDecimal(decimal.Zero)))
}

func TestTrailingZeroDecimalsEqual(t *testing.T) {
	a := numcodec.FromDecimal(decimal.RequireFromString("1"))
	b := numcodec.FromDecimal(decimal.RequireFromString("1.00"))
	require.True(t, numcodec.Equal(a, b))
	require.Equal(t, numcodec.Encode(a), numcodec.Encode(b))
}

func TestPrefixOrdering(t *testing.T) {
	a := numcodec.FromDecimal(decimal.RequireFromString("0.12"))
	b := numcodec.FromDecimal(decimal.RequireFromString("0.123"))
	require.True(t, numcodec.Less(a, b))

	na := numcodec.FromDecimal(decimal.RequireFromString("-0.12"))
	nb := numcodec.FromDecimal(decimal.RequireFromString("-0.123"))
	require.True(t, numcodec.Less(nb, na))
}

func TestDecodeRoundTripsInts(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 42, -42, 1000000, -1000000} {
		enc := numcodec.Encode(numcodec.FromInt(v))
		dec, err := numcodec.Decode(enc)
		require.NoError(t, err)
		require.True(t, numcodec.Equal(numcodec.FromInt(v), dec))
	}
}

func TestEncodeOrderMatchesNumericOrderProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Int64().Draw(rt, "a")
		b := rapid.Int64().Draw(rt, "b")
		ea := numcodec.Encode(numcodec.FromInt(a))
		eb := numcodec.Encode(numcodec.FromInt(b))
		cmp := compareBytes(ea, eb)
		switch {
		case a < b:
			require.True(rt, cmp < 0)
		case a > b:
			require.True(rt, cmp > 0)
		default:
			require.Equal(rt, 0, cmp)
		}
	})
}

func TestSortStabilityAcrossMixedMagnitudes(t *testing.T) {
	ints := []int64{5, -5, 0, 123456789, -123456789, 1, -1, 7, -7}
	nums := make([]numcodec.Number, len(ints))
	for i, v := range ints {
		nums[i] = numcodec.FromInt(v)
	}
	sort.Slice(nums, func(i, j int) bool { return numcodec.Less(nums[i], nums[j]) })
	for i := 1; i < len(nums); i++ {
		require.LessOrEqual(t, nums[i-1].I, nums[i].I)
	}
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}
