// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package hnsw

import (
	"context"
	"sort"

	"github.com/coredb-io/kernel/errs"
)

// selectNeighbors implements §4.8's heuristic neighbor selection
// (SurrealDB's select_neighbors_heuristic): given a candidate set
// already sorted by ascending distance to q, it greedily keeps a
// candidate only if it is closer to q than to every candidate already
// accepted, which favors spread over raw proximity. When
// extendCandidates is set the candidate set is first extended with
// each candidate's own neighbors at the same layer; when
// keepPrunedConnections is set, candidates the heuristic rejected are
// appended after the heuristic picks, up to max, rather than dropped.
func (ix *Index) selectNeighbors(ctx context.Context, layer uint16, q Vector, cands []candidate, max int) ([]uint64, error) {
	if ix.params.ExtendCandidates {
		seen := make(map[uint64]bool, len(cands))
		for _, c := range cands {
			seen[c.id] = true
		}
		extra := make([]candidate, 0, len(cands))
		for _, c := range cands {
			nbrs, ok, err := ix.neighbors(ctx, layer, c.id)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			for _, n := range nbrs {
				if seen[n] {
					continue
				}
				seen[n] = true
				d, err := ix.distanceTo(ctx, q, n)
				if err != nil {
					return nil, err
				}
				extra = append(extra, candidate{id: n, dist: d})
			}
		}
		cands = append(append([]candidate{}, cands...), extra...)
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })

	var picked []candidate
	var pruned []candidate
	for _, c := range cands {
		if len(picked) >= max {
			break
		}
		keep := true
		for _, p := range picked {
			pd, err := ix.distanceBetween(ctx, p.id, c.id)
			if err != nil {
				return nil, err
			}
			if pd < c.dist {
				keep = false
				break
			}
		}
		if keep {
			picked = append(picked, c)
		} else {
			pruned = append(pruned, c)
		}
	}

	if ix.params.KeepPrunedConnections {
		for _, c := range pruned {
			if len(picked) >= max {
				break
			}
			picked = append(picked, c)
		}
	}

	ids := make([]uint64, len(picked))
	for i, c := range picked {
		ids[i] = c.id
	}
	return ids, nil
}

// distanceBetween computes the distance between two already-stored
// elements, used by the heuristic's spread check (candidate-to-picked
// distance, not query-to-candidate).
func (ix *Index) distanceBetween(ctx context.Context, a, b uint64) (float64, error) {
	va, ok, err := ix.vector(ctx, a)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errs.New(errs.IndexError, "hnsw: element missing vector")
	}
	return ix.distanceTo(ctx, va, b)
}
