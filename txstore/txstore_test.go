package txstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/kv"
	"github.com/coredb-io/kernel/kv/memkv"
	"github.com/coredb-io/kernel/txstore"
	"github.com/coredb-io/kernel/val"
)

func newStore(t *testing.T) (*txstore.Store, kv.DB) {
	t.Helper()
	db := memkv.New()
	tx, err := db.BeginTx(context.Background(), kv.Write, kv.Optimistic)
	require.NoError(t, err)
	s, err := txstore.New(tx, nil, txstore.Options{})
	require.NoError(t, err)
	return s, db
}

func TestSetRecordThenGetSeesOwnWrite(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	key := []byte("rec-1")
	require.NoError(t, s.SetRecord(ctx, key, val.Int(7)))

	got, ok, err := s.GetRecord(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, val.Equal(val.Int(7), got))
}

func TestGetRecordMissingReturnsNotFound(t *testing.T) {
	s, _ := newStore(t)
	_, ok, err := s.GetRecord(context.Background(), []byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetRecordPopulatesCacheFromUnderlyingTx(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	key := []byte("rec-2")
	require.NoError(t, s.SetRecord(ctx, key, val.String("a")))

	// First read decodes from Tx and populates the cache; second read
	// must return the identical decoded value from cache.
	first, ok, err := s.GetRecord(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := s.GetRecord(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, val.Equal(first, second))
}

func TestSetDefThenGetDefRoundTrips(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	key := []byte("def-ns-1")
	def := val.Obj(map[string]val.Value{"name": val.String("test")})
	require.NoError(t, s.SetDef(ctx, key, def))

	got, ok, err := s.GetDef(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, val.Equal(def, got))
}

func TestInvalidateDefRemovesCachedEntry(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	key := []byte("def-ns-2")
	require.NoError(t, s.SetDef(ctx, key, val.Obj(map[string]val.Value{"name": val.String("x")})))
	s.InvalidateDef(key)

	// Underlying Tx still has the value (InvalidateDef only evicts the
	// cache entry); GetDef falls through and repopulates it.
	got, ok, err := s.GetDef(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, val.Equal(val.String("x"), got.Object["name"]))
}

func TestAllDefsCachesListingUntilInvalidated(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	prefix := []byte("def-tb-")
	suffix := []byte("def-tb-\xff")
	require.NoError(t, s.SetDef(ctx, []byte("def-tb-1"), val.String("a")))
	require.NoError(t, s.SetDef(ctx, []byte("def-tb-2"), val.String("b")))

	all, err := s.AllDefs(ctx, prefix, suffix)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// A further write under the same prefix must invalidate the cached
	// listing so the next AllDefs call observes it.
	require.NoError(t, s.SetDef(ctx, []byte("def-tb-3"), val.String("c")))
	all, err = s.AllDefs(ctx, prefix, suffix)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestRangeDrainsWrittenRecords(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetRecord(ctx, []byte("row-1"), val.Int(1)))
	require.NoError(t, s.SetRecord(ctx, []byte("row-2"), val.Int(2)))

	sc := s.Range([]byte("row-0"), []byte("row-9"), 0)
	var count int
	for {
		_, _, ok, err := sc.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 2, count)
}

func TestCommitDelegatesToTx(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetRecord(ctx, []byte("row-commit"), val.Int(1)))
	require.NoError(t, s.Commit(ctx))

	tx2, err := db.BeginTx(ctx, kv.Read, kv.Optimistic)
	require.NoError(t, err)
	_, ok, err := tx2.Get(ctx, []byte("row-commit"))
	require.NoError(t, err)
	require.True(t, ok)
}
