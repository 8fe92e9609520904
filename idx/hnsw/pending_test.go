package hnsw_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/idx/hnsw"
	"github.com/coredb-io/kernel/kv"
	"github.com/coredb-io/kernel/kv/memkv"
	"github.com/coredb-io/kernel/val"
)

func TestDocIDFromKeyIsStableForIntKeys(t *testing.T) {
	id, err := hnsw.DocIDFromKey(val.KeyInt(42))
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)
}

func TestDocIDFromKeyIsStableForStringKeys(t *testing.T) {
	a, err := hnsw.DocIDFromKey(val.KeyString("alice"))
	require.NoError(t, err)
	b, err := hnsw.DocIDFromKey(val.KeyString("alice"))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestIndexPendingsAppliesInsertionsAndDrainsQueue(t *testing.T) {
	tx, err := memkv.New().BeginTx(context.Background(), kv.Write, kv.Optimistic)
	require.NoError(t, err)
	params := hnsw.Params{Dimension: 2, Distance: hnsw.DistanceEuclidean, M: 8, M0: 16, EfConstruction: 64, Ml: 1.0 / math.Log(8)}
	seed := int64(3)
	ix := hnsw.New(tx, nil, 1, 1, 1, 1, params, true, &seed)
	require.NoError(t, ix.Load(context.Background()))
	ctx := context.Background()

	require.NoError(t, ix.EnqueuePending(ctx, hnsw.PendingUpdate{
		ID:         hnsw.VectorId{HasDocID: true, DocID: 5},
		NewVectors: []hnsw.Vector{{1, 1}},
	}))

	applied, err := ix.IndexPendings(ctx, func(context.Context, val.RecordIdKey) (uint64, error) {
		return 5, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	results, err := ix.KnnSearch(ctx, hnsw.Vector{1, 1}, 1, 32, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint64(5), results[0].DocID)

	applied, err = ix.IndexPendings(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 0, applied)
}
