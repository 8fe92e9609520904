package kv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/kv"
	"github.com/coredb-io/kernel/kv/memkv"
)

func TestRetrySucceedsOnFirstAttemptWithoutConflict(t *testing.T) {
	ctx := context.Background()
	db := memkv.New()

	attempts := 0
	err := kv.Retry(ctx, db, kv.Write, kv.Optimistic, 3, func(tx kv.RwTx) error {
		attempts++
		return tx.Set(ctx, []byte("a"), []byte("1"))
	})
	require.NoError(t, err)
	require.Equal(t, 1, attempts)

	tx, _ := db.BeginTx(ctx, kv.Read, kv.Optimistic)
	v, ok, _ := tx.Get(ctx, []byte("a"))
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)
}

func TestRetryRecoversFromConflict(t *testing.T) {
	ctx := context.Background()
	db := memkv.New()
	seed, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)
	require.NoError(t, seed.Set(ctx, []byte("a"), []byte("0")))
	require.NoError(t, seed.Commit(ctx))

	conflicted := false
	err := kv.Retry(ctx, db, kv.Write, kv.Optimistic, 5, func(tx kv.RwTx) error {
		_, _, err := tx.Get(ctx, []byte("a"))
		if err != nil {
			return err
		}
		if !conflicted {
			conflicted = true
			other, _ := db.BeginTx(ctx, kv.Write, kv.Optimistic)
			require.NoError(t, other.Set(ctx, []byte("a"), []byte("1")))
			require.NoError(t, other.Commit(ctx))
		}
		return tx.Set(ctx, []byte("a"), []byte("2"))
	})
	require.NoError(t, err)
}
