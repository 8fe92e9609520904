// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package catalog

import (
	"context"

	"github.com/coredb-io/kernel/keycodec"
	"github.com/coredb-io/kernel/txstore"
	"github.com/coredb-io/kernel/val"
)

// IndexKind is the closed set of index implementations a table's Index
// definition may select.
type IndexKind int

const (
	IndexUnique IndexKind = iota
	IndexStandard
	IndexHnsw
)

// Index describes a secondary structure over one or more Fields of a
// Table (§4.8 for the Hnsw variant's extra parameters).
type Index struct {
	ID      uint32
	TableID uint32
	Name    string
	Kind    IndexKind
	Fields  []string

	HnswDim                    int
	HnswDistance               string
	HnswVectorType             string
	HnswM                      int
	HnswM0                     int
	HnswMl                     float64
	HnswEfC                    int
	HnswExtendCandidates       bool
	HnswKeepPrunedConnections  bool
	HnswUseHashedVector        bool
}

func indexData(ix Index) val.Value {
	fields := make([]val.Value, len(ix.Fields))
	for i, f := range ix.Fields {
		fields[i] = val.String(f)
	}
	return val.Obj(map[string]val.Value{
		"kind":                    val.Int(int64(ix.Kind)),
		"fields":                  val.Arr(fields),
		"hnsw_dim":                val.Int(int64(ix.HnswDim)),
		"hnsw_distance":           val.String(ix.HnswDistance),
		"hnsw_vector_type":        val.String(ix.HnswVectorType),
		"hnsw_m":                  val.Int(int64(ix.HnswM)),
		"hnsw_m0":                 val.Int(int64(ix.HnswM0)),
		"hnsw_ml":                 val.Float(ix.HnswMl),
		"hnsw_efc":                val.Int(int64(ix.HnswEfC)),
		"hnsw_extend_candidates":  val.Bool(ix.HnswExtendCandidates),
		"hnsw_keep_pruned":        val.Bool(ix.HnswKeepPrunedConnections),
		"hnsw_use_hashed_vector":  val.Bool(ix.HnswUseHashedVector),
	})
}

func indexFromDef(tableID uint32, d Def) Index {
	ix := Index{ID: d.ID, TableID: tableID, Name: d.Name}
	if d.Data.Kind != val.KindObject {
		return ix
	}
	if k, ok := d.Data.Object["kind"]; ok {
		ix.Kind = IndexKind(numberToUint32(k.Number))
	}
	if fs, ok := d.Data.Object["fields"]; ok {
		for _, f := range fs.Array {
			ix.Fields = append(ix.Fields, f.Str)
		}
	}
	if n, ok := d.Data.Object["hnsw_dim"]; ok {
		ix.HnswDim = int(numberToUint32(n.Number))
	}
	if s, ok := d.Data.Object["hnsw_distance"]; ok {
		ix.HnswDistance = s.Str
	}
	if s, ok := d.Data.Object["hnsw_vector_type"]; ok {
		ix.HnswVectorType = s.Str
	}
	if n, ok := d.Data.Object["hnsw_m"]; ok {
		ix.HnswM = int(numberToUint32(n.Number))
	}
	if n, ok := d.Data.Object["hnsw_m0"]; ok {
		ix.HnswM0 = int(numberToUint32(n.Number))
	}
	if n, ok := d.Data.Object["hnsw_ml"]; ok {
		d, _, _, _ := n.Number.AsDecimal()
		ix.HnswMl, _ = d.Float64()
	}
	if n, ok := d.Data.Object["hnsw_efc"]; ok {
		ix.HnswEfC = int(numberToUint32(n.Number))
	}
	if b, ok := d.Data.Object["hnsw_extend_candidates"]; ok {
		ix.HnswExtendCandidates = b.Bool
	}
	if b, ok := d.Data.Object["hnsw_keep_pruned"]; ok {
		ix.HnswKeepPrunedConnections = b.Bool
	}
	if b, ok := d.Data.Object["hnsw_use_hashed_vector"]; ok {
		ix.HnswUseHashedVector = b.Bool
	}
	return ix
}

func CreateIndex(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, ix Index) (Index, error) {
	ix.TableID = tableID
	d, err := createDef(ctx, store, keycodec.LevelTable, keycodec.EntityIndex, []uint32{nsID, dbID, tableID}, ix.Name, indexData(ix))
	return indexFromDef(tableID, d), err
}

func GetIndex(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, name string) (Index, bool, error) {
	d, ok, err := getDef(ctx, store, keycodec.LevelTable, keycodec.EntityIndex, []uint32{nsID, dbID, tableID}, name)
	return indexFromDef(tableID, d), ok, err
}

func GetIndexByID(ctx context.Context, store *txstore.Store, nsID, dbID, tableID, id uint32) (Index, bool, error) {
	d, ok, err := getDefByID(ctx, store, keycodec.LevelTable, keycodec.EntityIndex, []uint32{nsID, dbID, tableID}, id)
	return indexFromDef(tableID, d), ok, err
}

func AllIndexes(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32) ([]Index, error) {
	defs, err := allDefs(ctx, store, keycodec.LevelTable, keycodec.EntityIndex, []uint32{nsID, dbID, tableID})
	if err != nil {
		return nil, err
	}
	out := make([]Index, len(defs))
	for i, d := range defs {
		out[i] = indexFromDef(tableID, d)
	}
	return out, nil
}

func RemoveIndex(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, name string) error {
	return removeDef(ctx, store, keycodec.LevelTable, keycodec.EntityIndex, []uint32{nsID, dbID, tableID}, name)
}
