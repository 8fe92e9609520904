package hnsw_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/idx/hnsw"
)

func TestDistanceCalculate(t *testing.T) {
	a := hnsw.Vector{0, 0}
	b := hnsw.Vector{3, 4}

	require.Equal(t, 5.0, hnsw.DistanceEuclidean.Calculate(a, b))
	require.Equal(t, 7.0, hnsw.DistanceManhattan.Calculate(a, b))
	require.Equal(t, 4.0, hnsw.DistanceChebyshev.Calculate(a, b))
	require.Equal(t, 2.0, hnsw.DistanceHamming.Calculate(a, b))
}

func TestCosineDistanceOfIdenticalVectorsIsZero(t *testing.T) {
	a := hnsw.Vector{1, 2, 3}
	require.InDelta(t, 0.0, hnsw.DistanceCosine.Calculate(a, a), 1e-9)
}

func TestCosineDistanceOfZeroVectorIsOne(t *testing.T) {
	a := hnsw.Vector{0, 0, 0}
	b := hnsw.Vector{1, 2, 3}
	require.Equal(t, 1.0, hnsw.DistanceCosine.Calculate(a, b))
}

func TestParseDistanceRoundTrips(t *testing.T) {
	for _, s := range []string{"euclidean", "manhattan", "cosine", "chebyshev", "hamming"} {
		require.Equal(t, s, hnsw.ParseDistance(s).String())
	}
}

func TestParseDistanceDefaultsToEuclidean(t *testing.T) {
	require.Equal(t, hnsw.DistanceEuclidean, hnsw.ParseDistance("unknown"))
}
