package keycodec_test

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/keycodec"
	"github.com/coredb-io/kernel/val"
)

func TestDefByNameKeyWithinPrefixSuffix(t *testing.T) {
	prefix := keycodec.DefByNamePrefix(keycodec.LevelDatabase, keycodec.EntityTable, []uint32{1, 2})
	suffix := keycodec.DefByNameSuffix(keycodec.LevelDatabase, keycodec.EntityTable, []uint32{1, 2})
	key := keycodec.DefByNameKey(keycodec.LevelDatabase, keycodec.EntityTable, []uint32{1, 2}, "person")

	require.True(t, bytes.Compare(prefix, key) <= 0)
	require.True(t, bytes.Compare(key, suffix) < 0)
}

func TestDefFamiliesDoNotCollide(t *testing.T) {
	nameKey := keycodec.DefByNameKey(keycodec.LevelNamespace, keycodec.EntityDatabase, []uint32{1}, "test")
	idKey := keycodec.DefByIDKey(keycodec.LevelNamespace, keycodec.EntityDatabase, []uint32{1}, 1)
	seqKey := keycodec.SequenceKey(keycodec.LevelNamespace, keycodec.EntityDatabase, []uint32{1})
	require.NotEqual(t, nameKey[0], idKey[0])
	require.NotEqual(t, nameKey[0], seqKey[0])
	require.NotEqual(t, idKey[0], seqKey[0])
}

func TestRowKeyOrderingForIntIDs(t *testing.T) {
	k1, err := keycodec.EncodeRecordIdKey(val.KeyInt(1))
	require.NoError(t, err)
	k2, err := keycodec.EncodeRecordIdKey(val.KeyInt(2))
	require.NoError(t, err)

	row1 := keycodec.RowKey(1, 1, 1, k1)
	row2 := keycodec.RowKey(1, 1, 1, k2)
	require.True(t, bytes.Compare(row1, row2) < 0)
}

func TestRowKeyWithinTablePrefixSuffix(t *testing.T) {
	enc, err := keycodec.EncodeRecordIdKey(val.KeyString("tobie"))
	require.NoError(t, err)
	row := keycodec.RowKey(1, 2, 3, enc)

	prefix := keycodec.RowPrefix(1, 2, 3)
	suffix := keycodec.RowSuffix(1, 2, 3)
	require.True(t, bytes.Compare(prefix, row) <= 0)
	require.True(t, bytes.Compare(row, suffix) < 0)
}

func TestEncodeRecordIdKeyBijective(t *testing.T) {
	u := uuid.New()
	cases := []val.RecordIdKey{
		val.KeyInt(42),
		val.KeyInt(-7),
		val.KeyString("hello"),
		val.KeyUuid(u),
		val.KeyObject(map[string]val.Value{"a": val.Int(1)}),
		val.KeyArray([]val.Value{val.String("x"), val.Int(2)}),
	}
	seen := map[string]bool{}
	for _, c := range cases {
		enc, err := keycodec.EncodeRecordIdKey(c)
		require.NoError(t, err)
		require.False(t, seen[string(enc)], "duplicate encoding for distinct key")
		seen[string(enc)] = true
	}
}

func TestRowKeyBoundsUnboundedCoversWholeTable(t *testing.T) {
	r := val.KeyRange(val.Bound{Kind: val.BoundUnbounded}, val.Bound{Kind: val.BoundUnbounded})
	lo, hi, err := keycodec.RowKeyBounds(1, 1, 1, r)
	require.NoError(t, err)

	enc, _ := keycodec.EncodeRecordIdKey(val.KeyInt(999))
	row := keycodec.RowKey(1, 1, 1, enc)
	require.True(t, bytes.Compare(lo, row) <= 0)
	require.True(t, bytes.Compare(row, hi) < 0)
}

func TestRowKeyBoundsIncludedExcluded(t *testing.T) {
	start := val.KeyInt(5)
	end := val.KeyInt(10)
	r := val.KeyRange(
		val.Bound{Kind: val.BoundIncluded, Key: &start},
		val.Bound{Kind: val.BoundExcluded, Key: &end},
	)
	lo, hi, err := keycodec.RowKeyBounds(1, 1, 1, r)
	require.NoError(t, err)

	enc5, _ := keycodec.EncodeRecordIdKey(val.KeyInt(5))
	enc9, _ := keycodec.EncodeRecordIdKey(val.KeyInt(9))
	enc10, _ := keycodec.EncodeRecordIdKey(val.KeyInt(10))
	row5 := keycodec.RowKey(1, 1, 1, enc5)
	row9 := keycodec.RowKey(1, 1, 1, enc9)
	row10 := keycodec.RowKey(1, 1, 1, enc10)

	require.True(t, bytes.Compare(lo, row5) <= 0)
	require.True(t, bytes.Compare(row9, hi) < 0)
	require.True(t, bytes.Compare(hi, row10) <= 0)
}

func TestHnswKeyFamiliesBracketedByPrefixSuffix(t *testing.T) {
	prefix := keycodec.HnswVectorPrefix(1, 1, 1, 1)
	suffix := keycodec.HnswVectorSuffix(1, 1, 1, 1)
	key := keycodec.HnswVectorKey(1, 1, 1, 1, 42)
	require.True(t, bytes.Compare(prefix, key) <= 0)
	require.True(t, bytes.Compare(key, suffix) < 0)
}
