// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package dbs

import "github.com/coredb-io/kernel/val"

// WriteOp classifies a statement's mutating intent, used to derive the
// live-notification Action (§6) and the read-only-vs-write commit
// policy (§7).
type WriteOp int

const (
	OpSelect WriteOp = iota
	OpCreate
	OpUpdate
	OpUpsert
	OpDelete
	OpInsert
	OpRelate
)

func (op WriteOp) readOnly() bool { return op == OpSelect }

// OrderField is one ORDER BY term.
type OrderField struct {
	Field string
	Desc  bool
}

// TargetKind is the closed set of WHAT-expression shapes the executor
// resolves into Iterables (§4.7 step 1). The SQL surface that produces
// these is out of scope (§1); Statement is the "abstract plan" the
// core consumes (§1: "used only through the abstract plan it
// produces").
type TargetKind int

const (
	TargetValue TargetKind = iota
	TargetTable
	TargetRecordId
	TargetRange
	TargetLookup
	TargetInsert
	TargetRelate
	TargetGenerateId
)

// Target is one resolved WHAT-expression the Prepare stage turns into
// an Iterable.
type Target struct {
	Kind TargetKind

	Value val.Value

	Table string // every kind but TargetValue names a table

	RecordId val.RecordId     // TargetRecordId
	Range    val.RecordIdKey  // TargetRange (Kind must be RecordIdKeyRange)

	LookupFrom      val.RecordId
	LookupDirection LookupDirection
	LookupWhat      []string

	InsertKey   *val.RecordIdKey // TargetInsert; nil means generate
	InsertValue val.Value

	RelateFrom    val.RecordId
	RelateThrough string
	RelateTo      val.RecordId
	RelateValue   val.Value

	// Index, when non-nil, is a pre-resolved index-backed iterator for
	// this target (e.g. from idx/hnsw.KnnSearch), bypassing a plain
	// Table/Range scan. Selecting it is planner territory (out of
	// scope); supplying one here is how a caller exercises the Index
	// iterable.
	Index IndexIterator
}

// Statement is the abstract plan the Executor runs (§4.7's "Statement
// plan and a frozen Context"). Filter/Split/Group/Order/Fetch/Start/
// Limit are already resolved values — evaluating the expressions that
// produce them is query-language surface, out of scope per §1; the
// Executor's job begins once they are concrete.
type Statement struct {
	Op      WriteOp
	Targets []Target

	// Filter, when non-nil, is applied to each candidate row during
	// Iterate (the realized WHERE clause). WhereDischarged reports
	// whether Filter is already fully satisfied by every Target's
	// chosen iterator (e.g. an index scan that only visits matching
	// rows), which licenses the §4.7 step-3 push-down rules.
	Filter          func(val.Value) bool
	WhereDischarged bool

	Split []string
	Group []string
	Order []OrderField
	Fetch []string

	HasStart bool
	Start    int
	HasLimit bool
	Limit    int

	// MustReturnOne implements §4.7 step 6: if set and iteration
	// produces no rows, a synthesized generated-id record is run
	// through the pipeline once more.
	MustReturnOne bool

	// Strict mirrors the catalog auto-materialization mode (§3): it is
	// passed to catalog.GetOrAddTable for every table target, so when
	// true a missing table is a SchemaError and when false it is
	// auto-created. Op is not consulted; no statement kind is treated
	// as deferable.
	Strict bool
}

func (stmt *Statement) hasGroupBy() bool { return len(stmt.Group) > 0 }
func (stmt *Statement) hasOrderBy() bool { return len(stmt.Order) > 0 }
