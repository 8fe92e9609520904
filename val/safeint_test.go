package val_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/val"
)

func TestParseInt64(t *testing.T) {
	v, ok := val.ParseInt64("42")
	require.True(t, ok)
	require.Equal(t, int64(42), v)

	v, ok = val.ParseInt64("0x2a")
	require.True(t, ok)
	require.Equal(t, int64(42), v)

	_, ok = val.ParseInt64("not-a-number")
	require.False(t, ok)
}

func TestSafeAddInt64Overflow(t *testing.T) {
	_, overflow := val.SafeAddInt64(val.MaxInt64, 1)
	require.True(t, overflow)

	sum, overflow := val.SafeAddInt64(1, 2)
	require.False(t, overflow)
	require.Equal(t, int64(3), sum)
}

func TestSafeMulUint64Overflow(t *testing.T) {
	_, overflow := val.SafeMulUint64(1<<32, 1<<32)
	require.True(t, overflow)

	prod, overflow := val.SafeMulUint64(2, 3)
	require.False(t, overflow)
	require.Equal(t, uint64(6), prod)
}
