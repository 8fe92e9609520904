package kv_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/kv"
	"github.com/coredb-io/kernel/kv/memkv"
)

func TestLimitedDBAllowsUpToMaxConcurrentTransactions(t *testing.T) {
	ctx := context.Background()
	ldb := kv.NewLimitedDB(memkv.New(), 2)

	tx1, err := ldb.BeginTx(ctx, kv.Read, kv.Optimistic)
	require.NoError(t, err)
	tx2, err := ldb.BeginTx(ctx, kv.Read, kv.Optimistic)
	require.NoError(t, err)

	require.NoError(t, tx1.Cancel(ctx))
	require.NoError(t, tx2.Cancel(ctx))
}

func TestLimitedDBBlocksBeyondMaxUntilASlotFrees(t *testing.T) {
	ctx := context.Background()
	ldb := kv.NewLimitedDB(memkv.New(), 1)

	tx1, err := ldb.BeginTx(ctx, kv.Read, kv.Optimistic)
	require.NoError(t, err)

	blocked := make(chan error, 1)
	go func() {
		tx2, err := ldb.BeginTx(ctx, kv.Read, kv.Optimistic)
		if err != nil {
			blocked <- err
			return
		}
		blocked <- tx2.Cancel(ctx)
	}()

	select {
	case <-blocked:
		t.Fatal("BeginTx should have blocked while the only slot is held")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, tx1.Cancel(ctx))

	select {
	case err := <-blocked:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("BeginTx never unblocked after the slot freed")
	}
}

func TestLimitedDBBeginTxRespectsContextCancellation(t *testing.T) {
	ldb := kv.NewLimitedDB(memkv.New(), 1)
	ctx := context.Background()
	tx1, err := ldb.BeginTx(ctx, kv.Read, kv.Optimistic)
	require.NoError(t, err)
	defer tx1.Cancel(ctx)

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = ldb.BeginTx(cctx, kv.Read, kv.Optimistic)
	require.Error(t, err)
}
