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

	"github.com/coredb-io/kernel/catalog"
	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/keycodec"
	"github.com/coredb-io/kernel/reqctx"
	"github.com/coredb-io/kernel/txstore"
	"github.com/coredb-io/kernel/val"
)

// Operable is a single candidate row flowing through the pipeline,
// carrying the row's address and its before/after value so PostProcess
// can diff them for notifications without re-reading storage
// (supplemented from original_source/surrealdb/core/src/dbs/
// iterator.rs's Operable/Workable split, dropped by the distillation).
type Operable struct {
	Record val.RecordId
	Before val.Value
	After  val.Value
}

// Workable tags what kind of work produced an Operable, mirroring the
// WriteOp that is driving this statement.
type Workable int

const (
	WorkableNormal Workable = iota
	WorkableInsert
	WorkableRelate
)

// processRecord applies stmt's write semantics to one candidate row
// and stages the resulting Operable plus, for mutating ops, a
// reqctx.Notification for every live subscription on the table,
// appended to notifications. It does not commit; the Executor commits
// once for the whole statement.
func processRecord(ctx context.Context, store *txstore.Store, rc *reqctx.Context, stmt *Statement, tbl catalog.Table, before val.Value, id val.RecordId, write Workable, notifications *[]reqctx.Notification) (Operable, error) {
	op := Operable{Record: id, Before: before}

	switch stmt.Op {
	case OpSelect:
		op.After = before
		return op, nil

	case OpDelete:
		key, err := rowKeyFor(tbl, id.Key)
		if err != nil {
			return op, errs.Wrap(errs.Internal, err, "encode row key for delete")
		}
		if err := store.DeleteRecord(ctx, key); err != nil {
			return op, errs.Wrap(errs.Internal, err, "delete row")
		}
		op.After = val.None()
		stageNotification(ctx, store, tbl, op, reqctx.Delete, notifications)
		return op, nil

	default: // Create/Update/Upsert/Insert/Relate all converge on a
		// coerce-then-write of After.
		after := before
		if stmt.Op != OpSelect {
			after = mergeForWrite(stmt, before)
		}
		coerced, err := coerceAgainstSchema(ctx, tbl, store, after)
		if err != nil {
			return op, err
		}
		coerced = coerced.WithID(id)

		key, err := rowKeyFor(tbl, id.Key)
		if err != nil {
			return op, errs.Wrap(errs.Internal, err, "encode row key for write")
		}
		if err := store.SetRecord(ctx, key, coerced); err != nil {
			return op, errs.Wrap(errs.Internal, err, "write row")
		}

		op.After = coerced
		action := reqctx.Update
		if before.Kind == val.KindNone {
			action = reqctx.Create
		}
		stageNotification(ctx, store, tbl, op, action, notifications)
		return op, nil
	}
}

// mergeForWrite is the placeholder the expression-evaluator collaborator
// fills in: the value to merge into After is already a resolved
// val.Value for Create/Insert (a fresh literal) and Update/Upsert
// (a merge patch), computed by the out-of-scope expression layer before
// Statement reaches the Executor, so no merge logic belongs here beyond
// falling back to the previous value when nothing new was supplied.
func mergeForWrite(stmt *Statement, before val.Value) val.Value {
	for _, t := range stmt.Targets {
		switch t.Kind {
		case TargetInsert:
			return t.InsertValue
		case TargetRelate:
			return t.RelateValue
		}
	}
	return before
}

func rowKeyFor(tbl catalog.Table, key val.RecordIdKey) ([]byte, error) {
	enc, err := keycodec.EncodeRecordIdKey(key)
	if err != nil {
		return nil, err
	}
	return keycodec.RowKey(tbl.NamespaceID, tbl.DatabaseID, tbl.ID, enc), nil
}

func coerceAgainstSchema(ctx context.Context, tbl catalog.Table, store *txstore.Store, v val.Value) (val.Value, error) {
	if !tbl.Schemafull || v.Kind != val.KindObject {
		return v, nil
	}
	fields, err := catalog.AllFields(ctx, store, tbl.NamespaceID, tbl.DatabaseID, tbl.ID)
	if err != nil {
		return v, err
	}
	out := make(map[string]val.Value, len(v.Object))
	for k, fv := range v.Object {
		out[k] = fv
	}
	for _, f := range fields {
		fv, present := out[f.Name]
		if !present {
			if f.HasDefault {
				out[f.Name] = f.Default
			}
			continue
		}
		coerced, err := f.CoerceOrReject(fv)
		if err != nil {
			return v, err
		}
		out[f.Name] = coerced
	}
	return val.Obj(out), nil
}

// stageNotification appends to notifications one entry per live
// subscription currently defined on tbl. It is called during
// Iterate/PostProcess; the Executor only returns this buffer from Run,
// and flushing it to the NotifySink after a successful commit is left
// to Run's caller (see executor.go), so a rolled-back write need never
// reach a subscriber.
func stageNotification(ctx context.Context, store *txstore.Store, tbl catalog.Table, op Operable, action reqctx.Action, notifications *[]reqctx.Notification) {
	lqs, err := catalog.AllLiveQueries(ctx, store, tbl.NamespaceID, tbl.DatabaseID, tbl.ID)
	if err != nil {
		return
	}
	for _, lq := range lqs {
		*notifications = append(*notifications, reqctx.Notification{
			SubscriptionID: lq.Name,
			Action:         action,
			Result:         op.After,
		})
	}
}
