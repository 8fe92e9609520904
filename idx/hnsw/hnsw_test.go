package hnsw_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/idx/hnsw"
	"github.com/coredb-io/kernel/kv"
	"github.com/coredb-io/kernel/kv/memkv"
	"github.com/coredb-io/kernel/val"
)

func openWritable(t *testing.T) kv.RwTx {
	t.Helper()
	tx, err := memkv.New().BeginTx(context.Background(), kv.Write, kv.Optimistic)
	require.NoError(t, err)
	return tx
}

func newIndex(t *testing.T, tx kv.RwTx, dim int) *hnsw.Index {
	t.Helper()
	seed := int64(7)
	params := hnsw.Params{Dimension: dim, Distance: hnsw.DistanceEuclidean, M: 8, M0: 16, EfConstruction: 64, Ml: 1.0 / math.Log(8)}
	ix := hnsw.New(tx, nil, 1, 1, 1, 1, params, true, &seed)
	require.NoError(t, ix.Load(context.Background()))
	return ix
}

func TestInsertThenKnnSearchFindsInsertedPoint(t *testing.T) {
	tx := openWritable(t)
	ix := newIndex(t, tx, 2)
	ctx := context.Background()

	_, err := ix.Insert(ctx, 1, val.KeyInt(1), hnsw.Vector{0, 0})
	require.NoError(t, err)
	_, err = ix.Insert(ctx, 2, val.KeyInt(2), hnsw.Vector{10, 10})
	require.NoError(t, err)

	results, err := ix.KnnSearch(ctx, hnsw.Vector{0.1, 0.1}, 1, 32, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint64(1), results[0].DocID)
}

func TestKnnSearchOnEmptyIndexReturnsNoResults(t *testing.T) {
	tx := openWritable(t)
	ix := newIndex(t, tx, 2)
	results, err := ix.KnnSearch(context.Background(), hnsw.Vector{0, 0}, 5, 32, nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestRemoveExcludesElementFromFutureSearch(t *testing.T) {
	tx := openWritable(t)
	ix := newIndex(t, tx, 2)
	ctx := context.Background()

	id1, err := ix.Insert(ctx, 1, val.KeyInt(1), hnsw.Vector{0, 0})
	require.NoError(t, err)
	_, err = ix.Insert(ctx, 2, val.KeyInt(2), hnsw.Vector{1, 1})
	require.NoError(t, err)

	require.NoError(t, ix.Remove(ctx, id1))

	results, err := ix.KnnSearch(ctx, hnsw.Vector{0, 0}, 2, 32, nil)
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, uint64(1), r.DocID)
	}
}

func TestKnnSearchFilterExcludesRejectedDocs(t *testing.T) {
	tx := openWritable(t)
	ix := newIndex(t, tx, 2)
	ctx := context.Background()

	_, err := ix.Insert(ctx, 1, val.KeyInt(1), hnsw.Vector{0, 0})
	require.NoError(t, err)
	_, err = ix.Insert(ctx, 2, val.KeyInt(2), hnsw.Vector{0.01, 0.01})
	require.NoError(t, err)

	results, err := ix.KnnSearch(ctx, hnsw.Vector{0, 0}, 2, 32, func(docID uint64, _ val.RecordIdKey) (bool, error) {
		return docID != 1, nil
	})
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, uint64(1), r.DocID)
	}
}

func TestLoadRebuildsDocElementsAcrossReopen(t *testing.T) {
	db := memkv.New()
	tx, err := db.BeginTx(context.Background(), kv.Write, kv.Optimistic)
	require.NoError(t, err)
	params := hnsw.Params{Dimension: 2, Distance: hnsw.DistanceEuclidean, M: 8, M0: 16, EfConstruction: 64, Ml: 1.0 / math.Log(8)}
	seed := int64(1)
	ix := hnsw.New(tx, nil, 1, 1, 1, 1, params, true, &seed)
	require.NoError(t, ix.Load(context.Background()))
	_, err = ix.Insert(context.Background(), 9, val.KeyInt(9), hnsw.Vector{3, 4})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(context.Background()))

	tx2, err := db.BeginTx(context.Background(), kv.Write, kv.Optimistic)
	require.NoError(t, err)
	ix2 := hnsw.New(tx2, nil, 1, 1, 1, 1, params, true, &seed)
	require.NoError(t, ix2.Load(context.Background()))

	results, err := ix2.KnnSearch(context.Background(), hnsw.Vector{3, 4}, 1, 32, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint64(9), results[0].DocID)
}

// bruteForceKnn is the exhaustive reference used by the recall test,
// independent of the graph machinery under test.
func bruteForceKnn(points map[uint64]hnsw.Vector, q hnsw.Vector, k int) []uint64 {
	type hit struct {
		id   uint64
		dist float64
	}
	hits := make([]hit, 0, len(points))
	for id, v := range points {
		hits = append(hits, hit{id: id, dist: hnsw.DistanceEuclidean.Calculate(q, v)})
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].dist < hits[j-1].dist; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]uint64, len(hits))
	for i, h := range hits {
		out[i] = h.id
	}
	return out
}

func TestRecallAgainstBruteForceBaseline(t *testing.T) {
	tx := openWritable(t)
	seed := int64(42)
	params := hnsw.Params{Dimension: 4, Distance: hnsw.DistanceEuclidean, M: 16, M0: 32, EfConstruction: 200, Ml: 1.0 / math.Log(16)}
	ix := hnsw.New(tx, nil, 1, 1, 1, 1, params, true, &seed)
	require.NoError(t, ix.Load(context.Background()))
	ctx := context.Background()

	rng := rand.New(rand.NewSource(99))
	points := make(map[uint64]hnsw.Vector, 200)
	for docID := uint64(1); docID <= 200; docID++ {
		v := hnsw.Vector{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}
		_, err := ix.Insert(ctx, docID, val.KeyInt(int64(docID)), v)
		require.NoError(t, err)
		points[docID] = v
	}

	const k = 10
	queries := 20
	var hitCount, total int
	for i := 0; i < queries; i++ {
		q := hnsw.Vector{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}
		want := bruteForceKnn(points, q, k)
		got, err := ix.KnnSearch(ctx, q, k, 200, nil)
		require.NoError(t, err)

		gotSet := make(map[uint64]bool, len(got))
		for _, r := range got {
			gotSet[r.DocID] = true
		}
		for _, id := range want {
			total++
			if gotSet[id] {
				hitCount++
			}
		}
	}
	recall := float64(hitCount) / float64(total)
	require.GreaterOrEqual(t, recall, 0.85)
}
