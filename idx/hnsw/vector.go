// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package hnsw implements the §4.8 HNSW vector index: a persisted
// hierarchical navigable small-world graph with a pending-update queue,
// heuristic neighbor selection, reconnecting deletion and filtered
// k-NN search, translated from
// _examples/original_source/surrealdb/core/src/idx/trees/hnsw/mod.rs
// into sequential Go methods on one *Index guarded by the owning
// kv.RwTx (that translation collapses the original's async
// cache+layer split since a txstore.Store already gives every
// transaction its own snapshot).
package hnsw

import (
	"encoding/binary"
	"math"

	"github.com/coredb-io/kernel/errs"
)

// Vector is a dense float64 embedding. The wire VectorType distinction
// the original keeps (F32/F64/I64/I32/I16) is a storage-footprint
// optimization; this reference implementation always computes in
// float64 and persists every component as an 8-byte float64
// (encodeVector).
type Vector []float64

// Distance is the closed set of distance metrics an index may use.
type Distance int

const (
	DistanceEuclidean Distance = iota
	DistanceManhattan
	DistanceCosine
	DistanceChebyshev
	DistanceHamming
)

func ParseDistance(s string) Distance {
	switch s {
	case "manhattan":
		return DistanceManhattan
	case "cosine":
		return DistanceCosine
	case "chebyshev":
		return DistanceChebyshev
	case "hamming":
		return DistanceHamming
	default:
		return DistanceEuclidean
	}
}

func (d Distance) String() string {
	switch d {
	case DistanceManhattan:
		return "manhattan"
	case DistanceCosine:
		return "cosine"
	case DistanceChebyshev:
		return "chebyshev"
	case DistanceHamming:
		return "hamming"
	default:
		return "euclidean"
	}
}

// Calculate returns the distance between a and b under d. Smaller is
// closer for every variant, including cosine (1 - cosine similarity).
func (d Distance) Calculate(a, b Vector) float64 {
	switch d {
	case DistanceManhattan:
		var sum float64
		for i := range a {
			sum += math.Abs(a[i] - b[i])
		}
		return sum
	case DistanceCosine:
		var dot, na, nb float64
		for i := range a {
			dot += a[i] * b[i]
			na += a[i] * a[i]
			nb += b[i] * b[i]
		}
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	case DistanceChebyshev:
		var max float64
		for i := range a {
			if diff := math.Abs(a[i] - b[i]); diff > max {
				max = diff
			}
		}
		return max
	case DistanceHamming:
		var n float64
		for i := range a {
			if a[i] != b[i] {
				n++
			}
		}
		return n
	default: // DistanceEuclidean
		var sum float64
		for i := range a {
			diff := a[i] - b[i]
			sum += diff * diff
		}
		return math.Sqrt(sum)
	}
}

// encodeVector lays out a Vector as a count-prefixed list of
// big-endian float64s, matching keycodec's own big-endian convention
// for multi-byte fields.
func encodeVector(v Vector) []byte {
	buf := make([]byte, 4+8*len(v))
	binary.BigEndian.PutUint32(buf, uint32(len(v)))
	for i, f := range v {
		binary.BigEndian.PutUint64(buf[4+8*i:], math.Float64bits(f))
	}
	return buf
}

func decodeVector(b []byte) (Vector, []byte, error) {
	if len(b) < 4 {
		return nil, nil, errs.New(errs.IndexError, "hnsw: truncated vector")
	}
	n := binary.BigEndian.Uint32(b)
	b = b[4:]
	need := int(n) * 8
	if len(b) < need {
		return nil, nil, errs.New(errs.IndexError, "hnsw: truncated vector body")
	}
	out := make(Vector, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(b[8*i:]))
	}
	return out, b[need:], nil
}
