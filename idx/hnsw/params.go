// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package hnsw

import (
	"math"

	"github.com/coredb-io/kernel/catalog"
)

// Params are the immutable-per-index construction parameters (§4.8:
// "dimension, vector-type, distance metric, m, m0, ml, ef_construction,
// extend_candidates, keep_pruned_connections, use_hashed_vector").
type Params struct {
	Dimension              int
	Distance               Distance
	M                      int
	M0                     int
	Ml                     float64
	EfConstruction         int
	ExtendCandidates       bool
	KeepPrunedConnections  bool
	UseHashedVector        bool
}

// ParamsFromCatalog reads the HNSW knobs off a catalog.Index
// definition, filling in the teacher-style sane defaults a DEFINE
// INDEX statement would otherwise have computed (the computation
// itself is parser/planner territory, out of scope here).
func ParamsFromCatalog(ix catalog.Index) Params {
	p := Params{
		Dimension:             ix.HnswDim,
		Distance:              ParseDistance(ix.HnswDistance),
		M:                     ix.HnswM,
		M0:                    ix.HnswM0,
		Ml:                    ix.HnswMl,
		EfConstruction:        ix.HnswEfC,
		ExtendCandidates:      ix.HnswExtendCandidates,
		KeepPrunedConnections: ix.HnswKeepPrunedConnections,
		UseHashedVector:       ix.HnswUseHashedVector,
	}
	if p.M <= 0 {
		p.M = 12
	}
	if p.M0 <= 0 {
		p.M0 = p.M * 2
	}
	if p.EfConstruction <= 0 {
		p.EfConstruction = 150
	}
	if p.Ml <= 0 {
		m := float64(p.M)
		if m <= 1 {
			m = 2
		}
		p.Ml = 1.0 / math.Log(m)
	}
	return p
}
