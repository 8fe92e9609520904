package val_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/val"
)

func TestNumericEqualityAcrossVariants(t *testing.T) {
	require.True(t, val.Equal(val.Int(0), val.Float(0.0)))
	require.True(t, val.Equal(val.Int(1), val.Float(1.0)))
	require.False(t, val.Equal(val.Int(1), val.Float(1.1)))
}

func TestWithIDRoundTrips(t *testing.T) {
	id := val.NewRecordId("person", val.KeyString("tobie"))
	obj := val.Obj(map[string]val.Value{"name": val.String("Tobie")})
	obj = obj.WithID(id)

	got, ok := obj.ID()
	require.True(t, ok)
	require.True(t, val.RecordIdEqual(id, got))
}

func TestDeepEqualArraysAndObjects(t *testing.T) {
	a := val.Arr([]val.Value{val.Int(1), val.String("x")})
	b := val.Arr([]val.Value{val.Int(1), val.String("x")})
	require.True(t, val.Equal(a, b))

	c := val.Obj(map[string]val.Value{"a": val.Bool(true)})
	d := val.Obj(map[string]val.Value{"a": val.Bool(true)})
	require.True(t, val.Equal(c, d))
}

func TestCompareCrossKindIsTotal(t *testing.T) {
	values := []val.Value{
		val.None(),
		val.Null(),
		val.Bool(false),
		val.Int(5),
		val.String("z"),
	}
	for i := 1; i < len(values); i++ {
		require.Equal(t, -1, val.Compare(values[i-1], values[i]))
		require.Equal(t, 1, val.Compare(values[i], values[i-1]))
	}
}

func TestRecordIdKeyEqualityByVariant(t *testing.T) {
	require.True(t, val.RecordIdKeyEqual(val.KeyInt(1), val.KeyInt(1)))
	require.False(t, val.RecordIdKeyEqual(val.KeyInt(1), val.KeyString("1")))

	u := uuid.New()
	require.True(t, val.RecordIdKeyEqual(val.KeyUuid(u), val.KeyUuid(u)))
}

func TestRecordIdRangeBoundsEqual(t *testing.T) {
	startKey := val.KeyInt(1)
	k1 := val.KeyRange(val.Bound{Kind: val.BoundIncluded, Key: &startKey}, val.Bound{Kind: val.BoundUnbounded})
	startKey2 := val.KeyInt(1)
	k2 := val.KeyRange(val.Bound{Kind: val.BoundIncluded, Key: &startKey2}, val.Bound{Kind: val.BoundUnbounded})
	require.True(t, val.RecordIdKeyEqual(k1, k2))
}

func TestResolverValueRoundTrip(t *testing.T) {
	thing := val.NewRecordId("person", val.KeyInt(1))
	rv := val.ResolvedRecord(val.TxnRef(7), thing)
	require.True(t, rv.IsRecord())

	sv := val.ResolvedScalar(val.Int(3))
	require.False(t, sv.IsRecord())
}
