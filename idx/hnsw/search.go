// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package hnsw

import (
	"container/heap"
	"context"

	"github.com/coredb-io/kernel/val"
)

// greedyDescend walks from ep down through layers (top, ..., target+1]
// with beam width 1, returning the closest element found at each
// handoff, matching §4.8's "greedy-descend with beam 1 through layers
// above the chosen level".
func (ix *Index) greedyDescend(ctx context.Context, q Vector, ep uint64, from, to uint16) (uint64, error) {
	best := ep
	bestDist, err := ix.distanceTo(ctx, q, ep)
	if err != nil {
		return 0, err
	}
	for layer := from; layer > to; layer-- {
		for {
			nbrs, ok, err := ix.neighbors(ctx, layer, best)
			if err != nil {
				return 0, err
			}
			if !ok {
				break
			}
			improved := false
			for _, n := range nbrs {
				d, err := ix.distanceTo(ctx, q, n)
				if err != nil {
					return 0, err
				}
				if d < bestDist {
					bestDist = d
					best = n
					improved = true
				}
			}
			if !improved {
				break
			}
		}
	}
	return best, nil
}

// searchLayer is the core beam search (§4.8 algorithm core): it walks
// outward from entry points through layer using a min-heap frontier,
// keeping a bounded max-heap W of the ef best results seen, and
// returns W sorted by ascending distance.
func (ix *Index) searchLayer(ctx context.Context, q Vector, entry []uint64, layer uint16, ef int, filter func(id uint64) (bool, error)) ([]candidate, error) {
	visited := make(map[uint64]bool, ef*2)
	var frontier nearHeap
	var w farHeap

	for _, e := range entry {
		if visited[e] {
			continue
		}
		visited[e] = true
		d, err := ix.distanceTo(ctx, q, e)
		if err != nil {
			return nil, err
		}
		heap.Push(&frontier, candidate{id: e, dist: d})
		if filter == nil {
			heap.Push(&w, candidate{id: e, dist: d})
		} else if ok, err := filter(e); err != nil {
			return nil, err
		} else if ok {
			heap.Push(&w, candidate{id: e, dist: d})
		}
	}

	for frontier.Len() > 0 {
		c := heap.Pop(&frontier).(candidate)
		if w.Len() >= ef && c.dist > w[0].dist {
			break
		}
		nbrs, ok, err := ix.neighbors(ctx, layer, c.id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for _, n := range nbrs {
			if visited[n] {
				continue
			}
			visited[n] = true
			d, err := ix.distanceTo(ctx, q, n)
			if err != nil {
				return nil, err
			}
			if w.Len() < ef || d < w[0].dist {
				heap.Push(&frontier, candidate{id: n, dist: d})
				accept := filter == nil
				if filter != nil {
					ok, err := filter(n)
					if err != nil {
						return nil, err
					}
					accept = ok
				}
				if accept {
					heap.Push(&w, candidate{id: n, dist: d})
					if w.Len() > ef {
						heap.Pop(&w)
					}
				}
			}
		}
	}

	return w.sortedAscending(), nil
}

// KnnSearch implements §4.8's knn_search(q, k, ef, filter?): greedy
// descend through upper layers, beam search with ef at layer 0 with an
// optional truthy filter applied at visit time, returning the top k.
// In-flight documents tracked by the pending-update queue are excluded
// by the caller wrapping this in an IndexIterator (at-least-once
// consistency, §4.8).
func (ix *Index) KnnSearch(ctx context.Context, q Vector, k, ef int, pred func(docID uint64, key val.RecordIdKey) (bool, error)) ([]Result, error) {
	if !ix.state.HasEnterPoint {
		return nil, nil
	}
	if ef < k {
		ef = k
	}

	ep, err := ix.greedyDescend(ctx, q, ix.state.EnterPoint, ix.state.TopLayers, 0)
	if err != nil {
		return nil, err
	}

	var filter func(id uint64) (bool, error)
	if pred != nil {
		filter = func(id uint64) (bool, error) {
			el, ok, err := ix.element(ctx, id)
			if err != nil || !ok {
				return false, err
			}
			return pred(el.DocID, el.RecordKey)
		}
	}

	cands, err := ix.searchLayer(ctx, q, []uint64{ep}, 0, ef, filter)
	if err != nil {
		return nil, err
	}
	if len(cands) > k {
		cands = cands[:k]
	}

	out := make([]Result, 0, len(cands))
	for _, c := range cands {
		el, ok, err := ix.element(ctx, c.id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, Result{ElementID: c.id, DocID: el.DocID, RecordKey: el.RecordKey, Distance: c.dist})
	}
	return out, nil
}
