// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package dbs implements the per-statement pipelined executor of spec
// §4.7: a five-stage pipeline (Prepare, Setup, PushDown, Iterate,
// PostProcess) driving Iterable sources into a ResultCollector, with
// conservative START/LIMIT push-down, live-notification buffering
// flushed only on commit, and the "must return at least one record"
// guarantee.
package dbs

import (
	"github.com/coredb-io/kernel/catalog"
	"github.com/coredb-io/kernel/val"
)

// IterableKind is the closed tag of the Iterable sum type (§4.7:
// "Value, Defer, GenerateRecordId, RecordId, Lookup, Table, Range,
// Mergeable, Relatable, Index").
type IterableKind int

const (
	IterableValue IterableKind = iota
	IterableDefer
	IterableGenerateRecordId
	IterableRecordId
	IterableLookup
	IterableTable
	IterableRange
	IterableMergeable
	IterableRelatable
	IterableIndex
)

// RecordStrategy is the planner's choice of how much of a record the
// storage layer needs to materialize per row (§4.7 step 1).
type RecordStrategy int

const (
	Count RecordStrategy = iota
	KeysOnly
	KeysAndValues
)

// LookupDirection is the edge-traversal direction for a Lookup
// iterable (§4.7: "graph-edge traversal at depth 1").
type LookupDirection int

const (
	LookupOut LookupDirection = iota
	LookupIn
	LookupBoth
)

// IndexIterator is the abstract handle an Index iterable drives; its
// concrete source (a catalog-defined unique/standard btree index, or
// idx/hnsw's KnnSearch) is resolved by the caller before Prepare runs,
// since selecting it from a WHERE clause is planner/parser territory
// (out of scope per spec.md §1). Keeping it an interface here — rather
// than importing idx/hnsw — avoids a dependency cycle and matches how
// erigon-lib/kv exposes only the cursor contract to its callers, not
// the backing table's physical layout.
type IndexIterator interface {
	Next() (val.RecordId, bool, error)
}

// Iterable is the closed sum type §4.7 names. Only the fields relevant
// to Kind are populated; a given Iterable always carries the resolved
// Table definition it operates against (when applicable), per §4.7
// ("each carries the resolved table context where applicable").
type Iterable struct {
	Kind IterableKind

	// Value carries a literal result row, used by Kind==IterableValue.
	Value val.Value

	// Table is the resolved table definition for every kind that reads
	// or writes rows (Table, Range, Mergeable, Relatable, Index, and
	// the table a RecordId/GenerateRecordId/Lookup target belongs to).
	Table catalog.Table

	// Strategy is the planner's record-materialization choice (§4.7
	// step 1).
	Strategy RecordStrategy

	// RecordId addresses a single row, used by IterableRecordId.
	RecordId val.RecordId

	// KeyRange addresses a RecordIdKeyRange, used by IterableRange.
	KeyRange val.RecordIdKey

	// Lookup fields, used by IterableLookup.
	LookupFrom      val.RecordId
	LookupDirection LookupDirection
	LookupWhat      []string

	// Mergeable fields (INSERT), used by IterableMergeable. Key is
	// optional: nil means the id is generated.
	MergeableKey   *val.RecordIdKey
	MergeableValue val.Value

	// Relatable fields (RELATE), used by IterableRelatable.
	RelatableFrom    val.RecordId
	RelatableThrough string
	RelatableTo      val.RecordId
	RelatableValue   val.Value

	// Index fields, used by IterableIndex.
	IndexIterator IndexIterator
}

func ValueIterable(v val.Value) *Iterable {
	return &Iterable{Kind: IterableValue, Value: v}
}

func DeferIterable(tbl catalog.Table) *Iterable {
	return &Iterable{Kind: IterableDefer, Table: tbl}
}

func GenerateRecordIdIterable(tbl catalog.Table) *Iterable {
	return &Iterable{Kind: IterableGenerateRecordId, Table: tbl}
}

func RecordIdIterable(tbl catalog.Table, id val.RecordId, strategy RecordStrategy) *Iterable {
	return &Iterable{Kind: IterableRecordId, Table: tbl, RecordId: id, Strategy: strategy}
}

func LookupIterable(tbl catalog.Table, from val.RecordId, dir LookupDirection, what []string, strategy RecordStrategy) *Iterable {
	return &Iterable{Kind: IterableLookup, Table: tbl, LookupFrom: from, LookupDirection: dir, LookupWhat: what, Strategy: strategy}
}

func TableIterable(tbl catalog.Table, strategy RecordStrategy) *Iterable {
	return &Iterable{Kind: IterableTable, Table: tbl, Strategy: strategy}
}

func RangeIterable(tbl catalog.Table, r val.RecordIdKey, strategy RecordStrategy) *Iterable {
	return &Iterable{Kind: IterableRange, Table: tbl, KeyRange: r, Strategy: strategy}
}

func MergeableIterable(tbl catalog.Table, key *val.RecordIdKey, value val.Value) *Iterable {
	return &Iterable{Kind: IterableMergeable, Table: tbl, MergeableKey: key, MergeableValue: value}
}

func RelatableIterable(tbl catalog.Table, from val.RecordId, through string, to val.RecordId, value val.Value) *Iterable {
	return &Iterable{Kind: IterableRelatable, Table: tbl, RelatableFrom: from, RelatableThrough: through, RelatableTo: to, RelatableValue: value}
}

func IndexIterable(tbl catalog.Table, it IndexIterator, strategy RecordStrategy) *Iterable {
	return &Iterable{Kind: IterableIndex, Table: tbl, IndexIterator: it, Strategy: strategy}
}
