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

	roaring "github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/coredb-io/kernel/val"
)

// KnnIterator adapts a KnnSearch call to dbs.IndexIterator's
// Next() (val.RecordId, bool, error) contract, so a HNSW index can
// back a dbs.Target.Index iterable without dbs importing this package
// (dbs/iterable.go: "avoids a dependency cycle").
type KnnIterator struct {
	ctx     context.Context
	table   string
	results []Result
	pos     int
}

// NewKnnIterator runs q's k-NN search against ix and wraps the results
// for sequential consumption. pending excludes documents the
// pending-update queue has not yet drained (§4.8: "at-least-once
// consistency... in-flight documents are excluded from graph
// results").
func NewKnnIterator(ctx context.Context, ix *Index, table string, q Vector, k, ef int, pending *roaring.Bitmap) (*KnnIterator, error) {
	var pred func(docID uint64, key val.RecordIdKey) (bool, error)
	if pending != nil {
		pred = func(docID uint64, _ val.RecordIdKey) (bool, error) {
			return !pending.Contains(docID), nil
		}
	}
	results, err := ix.KnnSearch(ctx, q, k, ef, pred)
	if err != nil {
		return nil, err
	}
	return &KnnIterator{ctx: ctx, table: table, results: results}, nil
}

// Next implements dbs.IndexIterator.
func (it *KnnIterator) Next() (val.RecordId, bool, error) {
	if it.pos >= len(it.results) {
		return val.RecordId{}, false, nil
	}
	r := it.results[it.pos]
	it.pos++
	return val.NewRecordId(it.table, r.RecordKey), true, nil
}
