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

	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/val"
)

// Insert implements §4.8's insert(q): pick a random level, descend
// greedily with beam 1 to find the entry point at the chosen level,
// then beam-search with ef_construction and heuristically connect at
// every layer from the chosen level down to 0, pruning each affected
// node back to its max connection count.
func (ix *Index) Insert(ctx context.Context, docID uint64, recordKey val.RecordIdKey, q Vector) (uint64, error) {
	if !ix.write {
		return 0, errs.New(errs.IndexError, "hnsw: insert requires a write transaction")
	}
	if len(q) != ix.params.Dimension && ix.params.Dimension > 0 {
		return 0, errs.New(errs.IndexError, "hnsw: vector dimension mismatch")
	}

	if ix.params.UseHashedVector {
		if existing, ok := ix.hashIndex[string(encodeVector(q))]; ok {
			ix.docElements[docID] = append(ix.docElements[docID], existing)
			return existing, nil
		}
	}

	id := ix.state.NextElementID
	ix.state.NextElementID++

	el := element{DocID: docID, RecordKey: recordKey, Vector: q}
	raw, err := encodeElement(el)
	if err != nil {
		return 0, err
	}
	if err := ix.tx.Set(ctx, ix.st.vectorKey(id), raw); err != nil {
		return 0, errs.Wrap(errs.IndexError, err, "hnsw: set element")
	}

	level := ix.randomLevel()

	if !ix.state.HasEnterPoint {
		for l := uint16(0); l <= level; l++ {
			if err := ix.addEmptyNode(ctx, l, id); err != nil {
				return 0, err
			}
		}
		ix.state.HasEnterPoint = true
		ix.state.EnterPoint = id
		ix.state.TopLayers = level
		if err := ix.saveState(ctx); err != nil {
			return 0, err
		}
		ix.trackInsert(docID, id, q)
		return id, nil
	}

	ep, err := ix.greedyDescend(ctx, q, ix.state.EnterPoint, ix.state.TopLayers, min16(level, ix.state.TopLayers))
	if err != nil {
		return 0, err
	}

	entry := []uint64{ep}
	for l := min16(level, ix.state.TopLayers); ; l-- {
		cands, err := ix.searchLayer(ctx, q, entry, l, ix.params.EfConstruction, nil)
		if err != nil {
			return 0, err
		}
		max := ix.maxConnections(l)
		neighborIDs, err := ix.selectNeighbors(ctx, l, q, cands, max)
		if err != nil {
			return 0, err
		}
		if err := ix.setNeighbors(ctx, l, id, neighborIDs); err != nil {
			return 0, err
		}
		for _, n := range neighborIDs {
			if err := ix.connect(ctx, l, n, id, max); err != nil {
				return 0, err
			}
		}

		entry = entry[:0]
		for _, c := range cands {
			entry = append(entry, c.id)
		}
		if len(entry) == 0 {
			entry = []uint64{ep}
		}
		if l == 0 {
			break
		}
	}

	for l := ix.state.TopLayers + 1; l <= level; l++ {
		if err := ix.addEmptyNode(ctx, l, id); err != nil {
			return 0, err
		}
	}
	if level > ix.state.TopLayers {
		ix.state.TopLayers = level
		ix.state.EnterPoint = id
	}
	if err := ix.saveState(ctx); err != nil {
		return 0, err
	}

	ix.trackInsert(docID, id, q)
	return id, nil
}

func (ix *Index) trackInsert(docID, id uint64, v Vector) {
	ix.docElements[docID] = append(ix.docElements[docID], id)
	if ix.params.UseHashedVector {
		ix.hashIndex[string(encodeVector(v))] = id
	}
}

// connect adds id to n's neighbor list at layer and prunes n back to
// max via the heuristic if it overflows, the "bidirectional connect
// and prune-to-max-connections" half of §4.8 insert.
func (ix *Index) connect(ctx context.Context, layer uint16, n, id uint64, max int) error {
	nbrs, ok, err := ix.neighbors(ctx, layer, n)
	if err != nil {
		return err
	}
	if !ok {
		nbrs = nil
	}
	for _, existing := range nbrs {
		if existing == id {
			return nil
		}
	}
	nbrs = append(nbrs, id)
	if len(nbrs) <= max {
		return ix.setNeighbors(ctx, layer, n, nbrs)
	}

	nv, ok, err := ix.vector(ctx, n)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.IndexError, "hnsw: connect: missing vector")
	}
	cands := make([]candidate, 0, len(nbrs))
	for _, m := range nbrs {
		d, err := ix.distanceTo(ctx, nv, m)
		if err != nil {
			return err
		}
		cands = append(cands, candidate{id: m, dist: d})
	}
	pruned, err := ix.selectNeighbors(ctx, layer, nv, cands, max)
	if err != nil {
		return err
	}
	return ix.setNeighbors(ctx, layer, n, pruned)
}

// Remove implements §4.8's remove(e): disconnect e at every layer it
// participates in, reconnect each former neighbor via a local search
// excluding e plus the heuristic, and re-pick the enter point via a
// bounded scan on the highest non-empty layer if e was the enter
// point.
func (ix *Index) Remove(ctx context.Context, id uint64) error {
	if !ix.write {
		return errs.New(errs.IndexError, "hnsw: remove requires a write transaction")
	}
	el, ok, err := ix.element(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	for layer := uint16(0); layer <= ix.state.TopLayers; layer++ {
		nbrs, ok, err := ix.neighbors(ctx, layer, id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := ix.deleteNode(ctx, layer, id); err != nil {
			return err
		}
		for _, n := range nbrs {
			if err := ix.reconnectAfterRemoval(ctx, layer, n, id); err != nil {
				return err
			}
		}
	}

	if err := ix.tx.Del(ctx, ix.st.vectorKey(id)); err != nil {
		return errs.Wrap(errs.IndexError, err, "hnsw: delete element")
	}
	ix.untrack(el.DocID, id, el.Vector)

	if ix.state.HasEnterPoint && ix.state.EnterPoint == id {
		if err := ix.repickEnterPoint(ctx); err != nil {
			return err
		}
	}
	return ix.saveState(ctx)
}

func (ix *Index) untrack(docID, id uint64, v Vector) {
	owned := ix.docElements[docID]
	for i, e := range owned {
		if e == id {
			ix.docElements[docID] = append(owned[:i], owned[i+1:]...)
			break
		}
	}
	if len(ix.docElements[docID]) == 0 {
		delete(ix.docElements, docID)
	}
	if ix.params.UseHashedVector {
		if h := string(encodeVector(v)); ix.hashIndex[h] == id {
			delete(ix.hashIndex, h)
		}
	}
}

// reconnectAfterRemoval drops the removed element from n's neighbor
// list at layer, then runs a local search excluding it plus the
// heuristic to refill n's neighbor set up to max.
func (ix *Index) reconnectAfterRemoval(ctx context.Context, layer uint16, n, removed uint64) error {
	nbrs, ok, err := ix.neighbors(ctx, layer, n)
	if err != nil || !ok {
		return err
	}
	filtered := nbrs[:0:0]
	for _, id := range nbrs {
		if id != removed {
			filtered = append(filtered, id)
		}
	}

	nv, ok, err := ix.vector(ctx, n)
	if err != nil {
		return err
	}
	if !ok {
		return ix.setNeighbors(ctx, layer, n, filtered)
	}

	max := ix.maxConnections(layer)
	candList, err := ix.searchLayer(ctx, nv, []uint64{n}, layer, max, func(id uint64) (bool, error) {
		return id != removed && id != n, nil
	})
	if err != nil {
		return err
	}
	seen := make(map[uint64]bool, len(filtered))
	cands := make([]candidate, 0, len(filtered)+len(candList))
	for _, id := range filtered {
		if seen[id] {
			continue
		}
		seen[id] = true
		d, err := ix.distanceTo(ctx, nv, id)
		if err != nil {
			return err
		}
		cands = append(cands, candidate{id: id, dist: d})
	}
	for _, c := range candList {
		if seen[c.id] {
			continue
		}
		seen[c.id] = true
		cands = append(cands, c)
	}

	picked, err := ix.selectNeighbors(ctx, layer, nv, cands, max)
	if err != nil {
		return err
	}
	return ix.setNeighbors(ctx, layer, n, picked)
}

// repickEnterPoint scans the highest non-empty layer for a
// replacement enter point (§4.8: "re-pick via a bounded scan on the
// highest non-empty layer").
func (ix *Index) repickEnterPoint(ctx context.Context) error {
	for layer := ix.state.TopLayers; ; layer-- {
		ids, err := ix.scanLayerIDs(ctx, layer, 1, ix.state.EnterPoint)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			ix.state.EnterPoint = ids[0]
			ix.state.TopLayers = layer
			return nil
		}
		if layer == 0 {
			ix.state.HasEnterPoint = false
			ix.state.EnterPoint = 0
			ix.state.TopLayers = 0
			return nil
		}
	}
}

func min16(a, b uint16) uint16 {
	if a < b {
		return a
	}
	return b
}
