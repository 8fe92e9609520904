// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package catalog implements the definition hierarchy of spec §3:
// Root -> {Users, AccessMethods, Namespaces}, Namespace -> {Users,
// AccessMethods, Databases}, Database -> {Users, AccessMethods,
// Analyzers, Functions, Params, Models, Tables}, Table -> {Events,
// Fields, Indexes, Views, LiveQueries}. Every definition gets a stable
// numeric id minted via kv.RwTx.ReadSequence and a name unique within
// its parent (§3's catalog-uniqueness invariant); both (parent,name)
// and (parent,id) resolve to the identical definition.
//
// Accessors are cache-fronted via txstore.Store; mutation methods
// (Create*/Alter*/Remove*, the DEFINE/ALTER/REMOVE equivalents — the
// SQL surface itself is out of scope) invalidate the touched cache
// entries so a later read within the same transaction observes the
// write (§4.4's correctness property).
package catalog

import (
	"context"

	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/keycodec"
	"github.com/coredb-io/kernel/numcodec"
	"github.com/coredb-io/kernel/txstore"
	"github.com/coredb-io/kernel/val"
)

// Def is the common shape every catalog definition's stored Value
// takes: a stable id, a unique-within-parent name, and kind-specific
// payload. Entity-specific wrappers (Namespace, Table, Field, ...)
// convert to/from Def.
type Def struct {
	ID   uint32
	Name string
	Data val.Value
}

func (d Def) value() val.Value {
	return val.Obj(map[string]val.Value{
		"id":   val.Int(int64(d.ID)),
		"name": val.String(d.Name),
		"data": d.Data,
	})
}

func defFromValue(v val.Value) (Def, error) {
	if v.Kind != val.KindObject {
		return Def{}, errs.New(errs.Internal, "catalog: malformed definition record")
	}
	idv, ok := v.Object["id"]
	if !ok || idv.Kind != val.KindNumber {
		return Def{}, errs.New(errs.Internal, "catalog: definition missing id")
	}
	namev, ok := v.Object["name"]
	if !ok || namev.Kind != val.KindString {
		return Def{}, errs.New(errs.Internal, "catalog: definition missing name")
	}
	return Def{ID: numberToUint32(idv.Number), Name: namev.Str, Data: v.Object["data"]}, nil
}

// numberToUint32 extracts an id minted via val.Int, robust to having
// round-tripped through keycodec's storage encoding (which decodes
// every Number to numcodec.KindDecimal regardless of how it was
// built).
func numberToUint32(n numcodec.Number) uint32 {
	d, _, _, _ := n.AsDecimal()
	return uint32(d.IntPart())
}

func getDef(ctx context.Context, store *txstore.Store, level keycodec.Level, kind keycodec.EntityKind, parentIDs []uint32, name string) (Def, bool, error) {
	v, ok, err := store.GetDef(ctx, keycodec.DefByNameKey(level, kind, parentIDs, name))
	if err != nil || !ok {
		return Def{}, ok, err
	}
	d, err := defFromValue(v)
	return d, true, err
}

func getDefByID(ctx context.Context, store *txstore.Store, level keycodec.Level, kind keycodec.EntityKind, parentIDs []uint32, id uint32) (Def, bool, error) {
	nameVal, ok, err := store.GetDef(ctx, keycodec.DefByIDKey(level, kind, parentIDs, id))
	if err != nil || !ok {
		return Def{}, ok, err
	}
	return getDef(ctx, store, level, kind, parentIDs, nameVal.Str)
}

func allDefs(ctx context.Context, store *txstore.Store, level keycodec.Level, kind keycodec.EntityKind, parentIDs []uint32) ([]Def, error) {
	vals, err := store.AllDefs(ctx, keycodec.DefByNamePrefix(level, kind, parentIDs), keycodec.DefByNameSuffix(level, kind, parentIDs))
	if err != nil {
		return nil, err
	}
	out := make([]Def, 0, len(vals))
	for _, v := range vals {
		d, err := defFromValue(v)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func createDef(ctx context.Context, store *txstore.Store, level keycodec.Level, kind keycodec.EntityKind, parentIDs []uint32, name string, data val.Value) (Def, error) {
	nameKey := keycodec.DefByNameKey(level, kind, parentIDs, name)
	if _, ok, err := store.GetDef(ctx, nameKey); err != nil {
		return Def{}, err
	} else if ok {
		return Def{}, errs.New(errs.KeyExists, "catalog: %q already exists", name)
	}

	id, err := store.Tx().ReadSequence(ctx, keycodec.SequenceKey(level, kind, parentIDs))
	if err != nil {
		return Def{}, err
	}
	d := Def{ID: uint32(id), Name: name, Data: data}
	if err := store.SetDef(ctx, nameKey, d.value()); err != nil {
		return Def{}, err
	}
	if err := store.SetDef(ctx, keycodec.DefByIDKey(level, kind, parentIDs, d.ID), val.String(name)); err != nil {
		return Def{}, err
	}
	return d, nil
}

func alterDef(ctx context.Context, store *txstore.Store, level keycodec.Level, kind keycodec.EntityKind, parentIDs []uint32, name string, mutate func(*Def)) (Def, error) {
	d, ok, err := getDef(ctx, store, level, kind, parentIDs, name)
	if err != nil {
		return Def{}, err
	}
	if !ok {
		return Def{}, errs.New(errs.SchemaError, "catalog: %q does not exist", name)
	}
	mutate(&d)
	if err := store.SetDef(ctx, keycodec.DefByNameKey(level, kind, parentIDs, name), d.value()); err != nil {
		return Def{}, err
	}
	return d, nil
}

func removeDef(ctx context.Context, store *txstore.Store, level keycodec.Level, kind keycodec.EntityKind, parentIDs []uint32, name string) error {
	d, ok, err := getDef(ctx, store, level, kind, parentIDs, name)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.SchemaError, "catalog: %q does not exist", name)
	}
	nameKey := keycodec.DefByNameKey(level, kind, parentIDs, name)
	idKey := keycodec.DefByIDKey(level, kind, parentIDs, d.ID)
	store.InvalidateDef(nameKey)
	store.InvalidateDef(idKey)
	if err := store.Tx().Del(ctx, nameKey); err != nil {
		return err
	}
	return store.Tx().Del(ctx, idKey)
}

// getOrAddDef implements the non-strict auto-materialization lifecycle
// rule of §3: "auto-materialized on first reference when the session
// is non-strict". strict=true instead reports SchemaError.
func getOrAddDef(ctx context.Context, store *txstore.Store, level keycodec.Level, kind keycodec.EntityKind, parentIDs []uint32, name string, strict bool, makeData func() val.Value) (Def, error) {
	d, ok, err := getDef(ctx, store, level, kind, parentIDs, name)
	if err != nil {
		return Def{}, err
	}
	if ok {
		return d, nil
	}
	if strict {
		return Def{}, errs.New(errs.SchemaError, "catalog: %q not found (strict mode)", name)
	}
	return createDef(ctx, store, level, kind, parentIDs, name, makeData())
}
