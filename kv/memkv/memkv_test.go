package memkv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/kv"
	"github.com/coredb-io/kernel/kv/memkv"
)

func TestPutThenGetSeesOwnWrite(t *testing.T) {
	ctx := context.Background()
	db := memkv.New()
	tx, err := db.BeginTx(ctx, kv.Write, kv.Optimistic)
	require.NoError(t, err)

	require.NoError(t, tx.Put(ctx, []byte("a"), []byte("1")))
	v, ok, err := tx.Get(ctx, []byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)
	require.NoError(t, tx.Commit(ctx))
}

func TestPutOnExistingKeyFails(t *testing.T) {
	ctx := context.Background()
	db := memkv.New()
	tx, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)
	require.NoError(t, tx.Put(ctx, []byte("a"), []byte("1")))
	require.NoError(t, tx.Commit(ctx))

	tx2, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)
	err := tx2.Put(ctx, []byte("a"), []byte("2"))
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.KeyExists, kind)
}

func TestCommittedWriteVisibleToLaterSnapshot(t *testing.T) {
	ctx := context.Background()
	db := memkv.New()
	tx, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)
	require.NoError(t, tx.Set(ctx, []byte("a"), []byte("1")))
	require.NoError(t, tx.Commit(ctx))

	tx2, _ := db.BeginTx(ctx, kv.Read, kv.Optimistic)
	v, ok, err := tx2.Get(ctx, []byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)
}

func TestOperationsAfterCommitFail(t *testing.T) {
	ctx := context.Background()
	db := memkv.New()
	tx, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)
	require.NoError(t, tx.Commit(ctx))

	_, _, err := tx.Get(ctx, []byte("a"))
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.TxFinished, kind)
}

func TestOptimisticConflictOnConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	db := memkv.New()
	seed, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)
	require.NoError(t, seed.Set(ctx, []byte("a"), []byte("1")))
	require.NoError(t, seed.Commit(ctx))

	tx1, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)
	tx2, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)

	_, _, err := tx1.Get(ctx, []byte("a"))
	require.NoError(t, err)
	require.NoError(t, tx1.Set(ctx, []byte("a"), []byte("2")))
	require.NoError(t, tx1.Commit(ctx))

	_, _, err = tx2.Get(ctx, []byte("a"))
	require.NoError(t, err)
	require.NoError(t, tx2.Set(ctx, []byte("a"), []byte("3")))
	err = tx2.Commit(ctx)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.TxConflict, kind)
}

func TestScanIsAscendingWithinHalfOpenRange(t *testing.T) {
	ctx := context.Background()
	db := memkv.New()
	tx, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, tx.Set(ctx, []byte(k), []byte(k)))
	}
	require.NoError(t, tx.Commit(ctx))

	tx2, _ := db.BeginTx(ctx, kv.Read, kv.Optimistic)
	pairs, err := tx2.Scan(ctx, []byte("b"), []byte("d"), 10)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	require.Equal(t, []byte("b"), pairs[0].K)
	require.Equal(t, []byte("c"), pairs[1].K)
}

func TestScanEmptyRangeReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	db := memkv.New()
	tx, _ := db.BeginTx(ctx, kv.Read, kv.Optimistic)
	pairs, err := tx.Scan(ctx, []byte("x"), []byte("x"), 10)
	require.NoError(t, err)
	require.Empty(t, pairs)
}

func TestDelPRemovesAllMatchingPrefix(t *testing.T) {
	ctx := context.Background()
	db := memkv.New()
	tx, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)
	for _, k := range []string{"p/1", "p/2", "q/1"} {
		require.NoError(t, tx.Set(ctx, []byte(k), []byte(k)))
	}
	n, err := tx.DelP(ctx, []byte("p/"))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, tx.Commit(ctx))

	tx2, _ := db.BeginTx(ctx, kv.Read, kv.Optimistic)
	_, ok, _ := tx2.Get(ctx, []byte("p/1"))
	require.False(t, ok)
	_, ok, _ = tx2.Get(ctx, []byte("q/1"))
	require.True(t, ok)
}

func TestReadSequenceAllocatesMonotonically(t *testing.T) {
	ctx := context.Background()
	db := memkv.New()
	tx, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)
	n1, err := tx.ReadSequence(ctx, []byte("seq"))
	require.NoError(t, err)
	n2, err := tx.ReadSequence(ctx, []byte("seq"))
	require.NoError(t, err)
	require.Equal(t, n1+1, n2)
}

func TestCancelDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	db := memkv.New()
	tx, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)
	require.NoError(t, tx.Set(ctx, []byte("a"), []byte("1")))
	require.NoError(t, tx.Cancel(ctx))

	tx2, _ := db.BeginTx(ctx, kv.Read, kv.Optimistic)
	_, ok, _ := tx2.Get(ctx, []byte("a"))
	require.False(t, ok)
}
