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
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/kv"
	"github.com/coredb-io/kernel/val"
)

// Index is one table's HNSW graph: persisted state plus in-memory
// bookkeeping rebuilt at Load from the durable vector family, scoped
// to the owning transaction the same way txstore's caches are (§5:
// "TxStore cache is bound to the lifetime of its Tx; no cross-tx
// sharing").
type Index struct {
	tx     kv.RwTx
	log    *zap.Logger
	st     storage
	params Params
	write  bool

	state  State
	loaded bool

	rng *rand.Rand

	// docElements maps a resolved doc id to the graph elements it
	// currently owns, rebuilt at Load by scanning the vector family.
	docElements map[uint64][]uint64
	// hashIndex maps a content hash of a vector's encoding to an
	// existing live element, consulted only when UseHashedVector is
	// set (§4.8 Open Question: content-addressed dedup).
	hashIndex map[string]uint64
}

// Result is one k-NN hit.
type Result struct {
	ElementID uint64
	DocID     uint64
	RecordKey val.RecordIdKey
	Distance  float64
}

// New constructs an Index bound to tx. write must report whether tx
// permits mutation; a nil log installs a no-op logger. seed pins the
// random-level generator for deterministic tests (§4.8: "tests require
// a deterministic-seed option").
func New(tx kv.RwTx, log *zap.Logger, nsID, dbID, tableID, indexID uint32, params Params, write bool, seed *int64) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	var src rand.Source
	if seed != nil {
		src = rand.NewSource(*seed)
	} else {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Index{
		tx:          tx,
		log:         log,
		st:          storage{nsID: nsID, dbID: dbID, tableID: tableID, indexID: indexID},
		params:      params,
		write:       write,
		rng:         rand.New(src),
		docElements: make(map[uint64][]uint64),
		hashIndex:   make(map[string]uint64),
	}
}

// Load reads the persisted state and rebuilds the in-memory indexes,
// migrating any legacy-encoded layer when Index was constructed with
// write=true (§4.8 legacy migration; §5: "HNSW state loads are guarded
// by a write transaction when migration is needed").
func (ix *Index) Load(ctx context.Context) error {
	raw, ok, err := ix.tx.Get(ctx, ix.st.stateKey())
	if err != nil {
		return errs.Wrap(errs.IndexError, err, "hnsw: load state")
	}
	if ok {
		st, err := decodeState(raw)
		if err != nil {
			return err
		}
		ix.state = st
	}

	migrated := false
	for layer := uint16(0); layer <= ix.state.TopLayers; layer++ {
		m, err := ix.migrateLegacyLayer(ctx, layer)
		if err != nil {
			return err
		}
		migrated = migrated || m
	}
	if migrated && ix.write {
		if err := ix.saveState(ctx); err != nil {
			return err
		}
		ix.log.Debug("hnsw: migrated legacy layer encoding", zap.Uint32("index", ix.st.indexID))
	}

	if err := ix.rebuildDocIndex(ctx); err != nil {
		return err
	}
	ix.loaded = true
	return nil
}

func (ix *Index) rebuildDocIndex(ctx context.Context) error {
	lo, hi := ix.st.vectorPrefix(), ix.st.vectorSuffix()
	for {
		pairs, err := ix.tx.Scan(ctx, lo, hi, kv.MaxBulkBatch)
		if err != nil {
			return errs.Wrap(errs.IndexError, err, "hnsw: scan vectors")
		}
		for _, p := range pairs {
			id := lastUint64(p.K)
			el, err := decodeElement(p.V)
			if err != nil {
				return err
			}
			ix.docElements[el.DocID] = append(ix.docElements[el.DocID], id)
			if ix.params.UseHashedVector {
				ix.hashIndex[string(encodeVector(el.Vector))] = id
			}
		}
		if len(pairs) < kv.MaxBulkBatch {
			return nil
		}
		lo = append(append([]byte{}, pairs[len(pairs)-1].K...), 0x00)
	}
}

// migrateLegacyLayer rewrites every legacy-tagged adjacency entry at
// layer to the current tag, returning whether anything changed. On a
// read-only Index it only reports whether migration would be needed,
// matching the "serve a transparent in-memory decode, don't persist"
// Open Question decision recorded in DESIGN.md.
func (ix *Index) migrateLegacyLayer(ctx context.Context, layer uint16) (bool, error) {
	lo, hi := ix.st.layerPrefix(layer), ix.st.layerSuffix(layer)
	migrated := false
	for {
		pairs, err := ix.tx.Scan(ctx, lo, hi, kv.MaxBulkBatch)
		if err != nil {
			return false, errs.Wrap(errs.IndexError, err, "hnsw: scan layer")
		}
		for _, p := range pairs {
			tag, ids, err := decodeNeighbors(p.V)
			if err != nil {
				return false, err
			}
			if tag != legacyTag {
				continue
			}
			migrated = true
			if ix.write {
				if err := ix.tx.Set(ctx, p.K, encodeNeighbors(currentTag, ids)); err != nil {
					return false, errs.Wrap(errs.IndexError, err, "hnsw: rewrite legacy layer entry")
				}
			}
		}
		if len(pairs) < kv.MaxBulkBatch {
			return migrated, nil
		}
		lo = append(append([]byte{}, pairs[len(pairs)-1].K...), 0x00)
	}
}

func (ix *Index) saveState(ctx context.Context) error {
	return ix.tx.Set(ctx, ix.st.stateKey(), encodeState(ix.state))
}

func lastUint64(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	var v uint64
	for _, b := range key[len(key)-8:] {
		v = v<<8 | uint64(b)
	}
	return v
}

// randomLevel implements §4.8's level formula
// floor(-ln(uniform(0,1)) * ml).
func (ix *Index) randomLevel() uint16 {
	u := ix.rng.Float64()
	for u == 0 {
		u = ix.rng.Float64()
	}
	return uint16(math.Floor(-math.Log(u) * ix.params.Ml))
}

func (ix *Index) maxConnections(layer uint16) int {
	if layer == 0 {
		return ix.params.M0
	}
	return ix.params.M
}

func (ix *Index) distanceTo(ctx context.Context, q Vector, id uint64) (float64, error) {
	v, ok, err := ix.vector(ctx, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errs.New(errs.IndexError, "hnsw: element missing vector")
	}
	return ix.params.Distance.Calculate(q, v), nil
}

func (ix *Index) vector(ctx context.Context, id uint64) (Vector, bool, error) {
	el, ok, err := ix.element(ctx, id)
	if err != nil || !ok {
		return nil, ok, err
	}
	return el.Vector, true, nil
}

func (ix *Index) element(ctx context.Context, id uint64) (element, bool, error) {
	raw, ok, err := ix.tx.Get(ctx, ix.st.vectorKey(id))
	if err != nil {
		return element{}, false, errs.Wrap(errs.IndexError, err, "hnsw: get element")
	}
	if !ok {
		return element{}, false, nil
	}
	el, err := decodeElement(raw)
	return el, err == nil, err
}

func (ix *Index) neighbors(ctx context.Context, layer uint16, id uint64) ([]uint64, bool, error) {
	raw, ok, err := ix.tx.Get(ctx, ix.st.layerKey(layer, id))
	if err != nil {
		return nil, false, errs.Wrap(errs.IndexError, err, "hnsw: get neighbors")
	}
	if !ok {
		return nil, false, nil
	}
	_, ids, err := decodeNeighbors(raw)
	return ids, err == nil, err
}

func (ix *Index) setNeighbors(ctx context.Context, layer uint16, id uint64, ids []uint64) error {
	return ix.tx.Set(ctx, ix.st.layerKey(layer, id), encodeNeighbors(currentTag, ids))
}

func (ix *Index) addEmptyNode(ctx context.Context, layer uint16, id uint64) error {
	if _, ok, err := ix.neighbors(ctx, layer, id); err != nil {
		return err
	} else if ok {
		return nil
	}
	return ix.setNeighbors(ctx, layer, id, nil)
}

func (ix *Index) deleteNode(ctx context.Context, layer uint16, id uint64) error {
	return ix.tx.Del(ctx, ix.st.layerKey(layer, id))
}

// scanLayerIDs returns up to limit element ids present at layer,
// excluding exclude, in ascending key order (used by Remove's
// "bounded scan on the highest non-empty layer" enter-point pick).
func (ix *Index) scanLayerIDs(ctx context.Context, layer uint16, limit int, exclude uint64) ([]uint64, error) {
	pairs, err := ix.tx.Scan(ctx, ix.st.layerPrefix(layer), ix.st.layerSuffix(layer), limit+1)
	if err != nil {
		return nil, errs.Wrap(errs.IndexError, err, "hnsw: scan layer ids")
	}
	out := make([]uint64, 0, len(pairs))
	for _, p := range pairs {
		id := lastUint64(p.K)
		if id == exclude {
			continue
		}
		out = append(out, id)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
