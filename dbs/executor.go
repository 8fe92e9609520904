// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package dbs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/coredb-io/kernel/catalog"
	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/keycodec"
	"github.com/coredb-io/kernel/reqctx"
	"github.com/coredb-io/kernel/txstore"
	"github.com/coredb-io/kernel/val"
)

// Executor drives one Statement's five-stage pipeline (§4.7: Prepare,
// Setup, PushDown, Iterate, PostProcess) against a frozen Context and
// its owning Store.
type Executor struct {
	store *txstore.Store
	rc    *reqctx.Context
	log   *zap.Logger

	iterables []*Iterable
	decision  Decision
	collector *ResultCollector
}

// NewExecutor builds an Executor over store, scoped to rc. log may be
// nil, in which case zap.NewNop() is used (matching the rest of this
// codebase's convention of an always-valid, possibly-no-op logger
// rather than nil checks at every call site).
func NewExecutor(store *txstore.Store, rc *reqctx.Context, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{store: store, rc: rc, log: log}
}

// Run executes stmt end to end: Prepare, Setup, PushDown, Iterate,
// PostProcess, and finally the "must return at least one record"
// guarantee of step 6. It does not commit or cancel the underlying
// transaction; the caller does that and, only on a successful commit,
// flushes the returned notifications to rc.Notify().
func (e *Executor) Run(ctx context.Context, stmt *Statement, explain *Explanation) ([]val.Value, []reqctx.Notification, error) {
	start := time.Now()

	if err := e.prepare(ctx, stmt); err != nil {
		return nil, nil, err
	}
	e.setup(stmt)
	e.decision = PushDown(stmt)
	explain.record("pushdown", map[string]any{
		"start_skip":       e.decision.StartSkip,
		"cancel_on_limit":  e.decision.CancelOnLimit,
		"cancel_threshold": e.decision.CancelThreshold,
	})

	rows, notifications, err := e.iterate(ctx, stmt, explain)
	if err != nil {
		return nil, nil, err
	}

	if len(rows) == 0 && stmt.MustReturnOne {
		row, n, err := e.runGenerated(ctx, stmt, explain)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
		notifications = append(notifications, n...)
	}

	elapsed := time.Since(start)
	if threshold := e.rc.SlowLogThreshold(); threshold > 0 && elapsed >= threshold {
		e.log.Warn("slow statement", zap.Duration("elapsed", elapsed), zap.Int("rows", len(rows)))
	} else {
		e.log.Debug("statement complete", zap.Duration("elapsed", elapsed), zap.Int("rows", len(rows)))
	}

	return rows, notifications, nil
}

// prepare resolves every Target into a concrete Iterable (§4.7 step 1).
func (e *Executor) prepare(ctx context.Context, stmt *Statement) error {
	e.iterables = e.iterables[:0]
	for _, t := range stmt.Targets {
		it, err := e.resolveTarget(ctx, stmt, t)
		if err != nil {
			return err
		}
		e.iterables = append(e.iterables, it)
	}
	return nil
}

func (e *Executor) resolveTarget(ctx context.Context, stmt *Statement, t Target) (*Iterable, error) {
	if t.Kind == TargetValue {
		return ValueIterable(t.Value), nil
	}

	tbl, err := e.resolveTable(ctx, t.Table, stmt.Strict)
	if err != nil {
		return nil, err
	}

	strategy := KeysAndValues
	if stmt.hasGroupBy() {
		strategy = Count
	}

	switch t.Kind {
	case TargetTable:
		if t.Index != nil {
			return IndexIterable(tbl, t.Index, strategy), nil
		}
		return TableIterable(tbl, strategy), nil
	case TargetRecordId:
		return RecordIdIterable(tbl, t.RecordId, strategy), nil
	case TargetRange:
		return RangeIterable(tbl, t.Range, strategy), nil
	case TargetLookup:
		return LookupIterable(tbl, t.LookupFrom, t.LookupDirection, t.LookupWhat, strategy), nil
	case TargetInsert:
		return MergeableIterable(tbl, t.InsertKey, t.InsertValue), nil
	case TargetRelate:
		return RelatableIterable(tbl, t.RelateFrom, t.RelateThrough, t.RelateTo, t.RelateValue), nil
	case TargetGenerateId:
		return GenerateRecordIdIterable(tbl), nil
	default:
		return nil, errs.New(errs.InvalidStatementTarget, "unresolvable target kind %d", t.Kind)
	}
}

func (e *Executor) resolveTable(ctx context.Context, name string, strict bool) (catalog.Table, error) {
	// nsID/dbID come from the frozen Context's "ns"/"db" variables,
	// read by sessionScope.
	nsID, dbID := e.sessionScope()
	return catalog.GetOrAddTable(ctx, e.store, nsID, dbID, name, strict)
}

// sessionScope resolves the current namespace/database ids from the
// frozen Context's variable scope (§4.6's "ns"/"db" session
// variables), defaulting to 0 when unset (a root-level session with
// no selected namespace/database, which GetOrAddTable treats as a
// normal, if degenerate, parent scope).
func (e *Executor) sessionScope() (nsID, dbID uint32) {
	if v, ok := e.rc.Get("ns"); ok && v.Kind == val.KindNumber {
		nsID = uint32(v.Number.I)
	}
	if v, ok := e.rc.Get("db"); ok && v.Kind == val.KindNumber {
		dbID = uint32(v.Number.I)
	}
	return nsID, dbID
}

// setup chooses the ResultCollector (§4.7 step 2/5): the bounded
// priority queue when start+limit is within BoundedSortCeiling and
// there's an ORDER BY to satisfy, a full sort otherwise, GROUP BY takes
// priority over ordering (it already produces one row per group), and
// a plain memory collector when neither applies.
func (e *Executor) setup(stmt *Statement) {
	switch {
	case stmt.hasGroupBy():
		e.collector = NewGroupsCollector(stmt.Group)
	case stmt.hasOrderBy():
		k := stmt.Limit
		if stmt.HasStart {
			k += stmt.Start
		}
		if stmt.HasLimit && k > 0 && k <= BoundedSortCeiling {
			e.collector = NewMemoryOrderedLimitCollector(stmt.Order, k)
		} else {
			e.collector = NewMemoryOrderedCollector(stmt.Order)
		}
	default:
		e.collector = NewMemoryCollector()
	}
}

// iterate drains every Iterable into the collector, applying the
// Filter and the push-down decision's early-cancel threshold, then
// runs PostProcess (write-back + notification staging) per row.
func (e *Executor) iterate(ctx context.Context, stmt *Statement, explain *Explanation) ([]val.Value, []reqctx.Notification, error) {
	var notifications []reqctx.Notification
	produced := 0
	var count uint64

	for _, it := range e.iterables {
		rows, err := e.drainIterable(ctx, it)
		if err != nil {
			return nil, nil, err
		}

		skip := 0
		if e.decision.StartSkip {
			skip = stmt.Start
		}

		for i, candidate := range rows {
			if reason := e.rc.IsDone(&count); reason != reqctx.None {
				return nil, nil, reasonToErr(reason)
			}
			if i < skip {
				continue
			}
			if stmt.Filter != nil && !stmt.Filter(candidate.value) {
				continue
			}

			op, err := processRecord(ctx, e.store, e.rc, stmt, it.Table, candidate.value, candidate.id, WorkableNormal, &notifications)
			if err != nil {
				return nil, nil, err
			}
			if op.After.Kind != val.KindNone {
				e.collector.Push(op.After)
			}

			produced++
			if e.decision.CancelOnLimit && e.decision.CancelThreshold > 0 && produced >= e.decision.CancelThreshold {
				break
			}
		}
	}

	explain.record("iterate", map[string]any{"candidates": produced})

	rows := e.collector.Finish(stmt.Start, stmt.HasStart && !e.decision.StartSkip, stmt.Limit, stmt.HasLimit)
	return rows, notifications, nil
}

// candidateRow pairs a row's address with its current value, the
// shape every Iterable kind converges on before processRecord runs.
type candidateRow struct {
	id    val.RecordId
	value val.Value
}

// drainIterable materializes it fully into memory. A genuinely
// streaming executor would pull lazily and let push-down cancel a scan
// mid-flight at the storage layer; §4.7 only requires the *result* of
// that push-down (fewer rows touched), which this reference
// implementation achieves by stopping the outer loop in iterate
// instead of threading cancellation into each Iterable kind's cursor.
func (e *Executor) drainIterable(ctx context.Context, it *Iterable) ([]candidateRow, error) {
	switch it.Kind {
	case IterableValue:
		return []candidateRow{{value: it.Value}}, nil

	case IterableDefer:
		return nil, nil

	case IterableGenerateRecordId:
		id, err := e.generateRecordId(ctx, it.Table)
		if err != nil {
			return nil, err
		}
		return []candidateRow{{id: id, value: val.None()}}, nil

	case IterableRecordId:
		v, ok, err := e.getRecord(ctx, it.Table, it.RecordId.Key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return []candidateRow{{id: it.RecordId, value: v}}, nil

	case IterableTable:
		lo, hi := keycodec.RowPrefix(it.Table.NamespaceID, it.Table.DatabaseID, it.Table.ID), keycodec.RowSuffix(it.Table.NamespaceID, it.Table.DatabaseID, it.Table.ID)
		return e.scanRows(ctx, it.Table, lo, hi)

	case IterableRange:
		lo, hi, err := keycodec.RowKeyBounds(it.Table.NamespaceID, it.Table.DatabaseID, it.Table.ID, it.KeyRange)
		if err != nil {
			return nil, err
		}
		return e.scanRows(ctx, it.Table, lo, hi)

	case IterableIndex:
		return e.drainIndex(ctx, it)

	case IterableMergeable:
		return e.drainMergeable(ctx, it)

	case IterableRelatable:
		return e.drainRelatable(ctx, it)

	case IterableLookup:
		return e.drainLookup(ctx, it)

	default:
		return nil, errs.New(errs.Internal, "unhandled iterable kind %d", it.Kind)
	}
}

func (e *Executor) getRecord(ctx context.Context, tbl catalog.Table, key val.RecordIdKey) (val.Value, bool, error) {
	k, err := rowKeyFor(tbl, key)
	if err != nil {
		return val.Value{}, false, err
	}
	return e.store.GetRecord(ctx, k)
}

func (e *Executor) scanRows(ctx context.Context, tbl catalog.Table, lo, hi []byte) ([]candidateRow, error) {
	var out []candidateRow
	sc := e.store.Range(lo, hi, 0)
	for {
		k, v, ok, err := sc.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		decoded, _, err := keycodec.DecodeValue(v)
		if err != nil {
			return nil, err
		}
		id, ok := decoded.ID()
		if !ok {
			id = val.NewRecordId(tbl.Name, keyFromRow(tbl, k))
		}
		out = append(out, candidateRow{id: id, value: decoded})
	}
	return out, nil
}

// keyFromRow recovers the RecordIdKey suffix of a raw row key for rows
// whose encoded value lacks an id field (e.g. written outside dbs).
// RowKeyBounds/RowPrefix guarantee every row key under this table
// shares the same fixed-width family+id prefix, so the remainder is
// always exactly the record's encoded key.
func keyFromRow(tbl catalog.Table, k []byte) val.RecordIdKey {
	prefix := keycodec.RowPrefix(tbl.NamespaceID, tbl.DatabaseID, tbl.ID)
	if len(k) <= len(prefix) {
		return val.RecordIdKey{}
	}
	key, err := keycodec.DecodeRecordIdKey(k[len(prefix):])
	if err != nil {
		return val.RecordIdKey{}
	}
	return key
}

func (e *Executor) drainIndex(ctx context.Context, it *Iterable) ([]candidateRow, error) {
	var out []candidateRow
	for {
		id, ok, err := it.IndexIterator.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		v, found, err := e.getRecord(ctx, it.Table, id.Key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		out = append(out, candidateRow{id: id, value: v})
	}
	return out, nil
}

func (e *Executor) drainMergeable(ctx context.Context, it *Iterable) ([]candidateRow, error) {
	id, err := e.mergeableRecordId(ctx, it)
	if err != nil {
		return nil, err
	}
	existing, _, err := e.getRecord(ctx, it.Table, id.Key)
	if err != nil {
		return nil, err
	}
	return []candidateRow{{id: id, value: existing}}, nil
}

func (e *Executor) mergeableRecordId(ctx context.Context, it *Iterable) (val.RecordId, error) {
	if it.MergeableKey != nil {
		return val.NewRecordId(it.Table.Name, *it.MergeableKey), nil
	}
	return e.generateRecordId(ctx, it.Table)
}

func (e *Executor) drainRelatable(ctx context.Context, it *Iterable) ([]candidateRow, error) {
	id, err := e.generateRecordId(ctx, it.Table)
	if err != nil {
		return nil, err
	}
	return []candidateRow{{id: id, value: val.None()}}, nil
}

// drainLookup implements the depth-1 graph-edge traversal: it scans
// the target table for rows whose "in"/"out" pointer field matches
// LookupFrom according to LookupDirection (Both checks either field).
func (e *Executor) drainLookup(ctx context.Context, it *Iterable) ([]candidateRow, error) {
	lo, hi := keycodec.RowPrefix(it.Table.NamespaceID, it.Table.DatabaseID, it.Table.ID), keycodec.RowSuffix(it.Table.NamespaceID, it.Table.DatabaseID, it.Table.ID)
	all, err := e.scanRows(ctx, it.Table, lo, hi)
	if err != nil {
		return nil, err
	}
	var out []candidateRow
	for _, c := range all {
		if edgeMatches(c.value, it.LookupFrom, it.LookupDirection) {
			out = append(out, c)
		}
	}
	return out, nil
}

func edgeMatches(row val.Value, from val.RecordId, dir LookupDirection) bool {
	if row.Kind != val.KindObject {
		return false
	}
	check := func(field string) bool {
		v, ok := row.Object[field]
		if !ok {
			return false
		}
		r, ok := v.ID()
		return ok && r.Table == from.Table && val.RecordIdKeyEqual(r.Key, from.Key)
	}
	switch dir {
	case LookupOut:
		return check("out")
	case LookupIn:
		return check("in")
	default:
		return check("out") || check("in")
	}
}

// generateRecordId mints a fresh integer-keyed RecordId for tbl, using
// a dedicated sequence counter keyed by the table's row prefix plus a
// tag byte distinct from any encoded row key (ReadSequence's keyspace
// is independent of the main keyspace, so this only has to avoid
// colliding with another table's sequence, not with row data itself).
func (e *Executor) generateRecordId(ctx context.Context, tbl catalog.Table) (val.RecordId, error) {
	seqKey := append(keycodec.RowPrefix(tbl.NamespaceID, tbl.DatabaseID, tbl.ID), 0xFF)
	n, err := e.store.Tx().ReadSequence(ctx, seqKey)
	if err != nil {
		return val.RecordId{}, errs.Wrap(errs.Internal, err, "generate record id")
	}
	return val.NewRecordId(tbl.Name, val.KeyInt(int64(n))), nil
}

// runGenerated implements §4.7 step 6: when a statement guarantees at
// least one result but Iterate produced none, synthesize a single
// generated-id record and run it through processRecord once more so
// e.g. a bare INSERT with no matching WHERE still creates exactly one
// row.
func (e *Executor) runGenerated(ctx context.Context, stmt *Statement, explain *Explanation) (val.Value, []reqctx.Notification, error) {
	if len(e.iterables) == 0 {
		return val.Value{}, nil, errs.New(errs.InvalidStatementTarget, "must-return-one statement has no target table")
	}
	tbl := e.iterables[0].Table
	id, err := e.generateRecordId(ctx, tbl)
	if err != nil {
		return val.Value{}, nil, err
	}
	var notifications []reqctx.Notification
	op, err := processRecord(ctx, e.store, e.rc, stmt, tbl, val.None(), id, WorkableNormal, &notifications)
	if err != nil {
		return val.Value{}, nil, err
	}
	explain.record("guaranteed-record", map[string]any{"table": tbl.Name})
	return op.After, notifications, nil
}

func reasonToErr(reason reqctx.Reason) error {
	switch reason {
	case reqctx.Cancelled:
		return errs.New(errs.QueryCancelled, "statement cancelled")
	case reqctx.Timedout:
		return errs.New(errs.QueryTimedout, "statement exceeded its deadline")
	case reqctx.MemoryThresholdExceeded:
		return errs.New(errs.QueryBeyondMemoryThreshold, "statement exceeded its memory budget")
	default:
		return nil
	}
}
