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

// Field describes one column of a Table (§3: "A Field definition may
// carry a Kind (static type); writes must coerce or reject values not
// matching Kind (unless the field is declared flexible)").
type Field struct {
	ID         uint32
	TableID    uint32
	Name       string
	Kind       val.Kind
	Flexible   bool
	HasDefault bool
	Default    val.Value
}

func fieldData(f Field) val.Value {
	return val.Obj(map[string]val.Value{
		"kind":        val.Int(int64(f.Kind)),
		"flexible":    val.Bool(f.Flexible),
		"has_default": val.Bool(f.HasDefault),
		"default":     f.Default,
	})
}

func fieldFromDef(tableID uint32, d Def) Field {
	f := Field{ID: d.ID, TableID: tableID, Name: d.Name}
	if d.Data.Kind != val.KindObject {
		return f
	}
	if k, ok := d.Data.Object["kind"]; ok {
		f.Kind = val.Kind(numberToUint32(k.Number))
	}
	if b, ok := d.Data.Object["flexible"]; ok {
		f.Flexible = b.Bool
	}
	if b, ok := d.Data.Object["has_default"]; ok {
		f.HasDefault = b.Bool
	}
	f.Default = d.Data.Object["default"]
	return f
}

func CreateField(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, f Field) (Field, error) {
	f.TableID = tableID
	d, err := createDef(ctx, store, keycodec.LevelTable, keycodec.EntityField, []uint32{nsID, dbID, tableID}, f.Name, fieldData(f))
	return fieldFromDef(tableID, d), err
}

func GetField(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, name string) (Field, bool, error) {
	d, ok, err := getDef(ctx, store, keycodec.LevelTable, keycodec.EntityField, []uint32{nsID, dbID, tableID}, name)
	return fieldFromDef(tableID, d), ok, err
}

func AllFields(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32) ([]Field, error) {
	defs, err := allDefs(ctx, store, keycodec.LevelTable, keycodec.EntityField, []uint32{nsID, dbID, tableID})
	if err != nil {
		return nil, err
	}
	out := make([]Field, len(defs))
	for i, d := range defs {
		out[i] = fieldFromDef(tableID, d)
	}
	return out, nil
}

func AlterField(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, f Field) (Field, error) {
	f.TableID = tableID
	d, err := alterDef(ctx, store, keycodec.LevelTable, keycodec.EntityField, []uint32{nsID, dbID, tableID}, f.Name, func(d *Def) {
		d.Data = fieldData(f)
	})
	return fieldFromDef(tableID, d), err
}

func RemoveField(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, name string) error {
	return removeDef(ctx, store, keycodec.LevelTable, keycodec.EntityField, []uint32{nsID, dbID, tableID}, name)
}

// CoerceOrReject applies this Field's static-type constraint to v:
// it returns v unchanged when v's Kind matches (or v is Null/None),
// and errs.TypeError otherwise; no conversion between kinds is
// attempted. A Flexible field never rejects.
func (f Field) CoerceOrReject(v val.Value) (val.Value, error) {
	if f.Flexible || v.Kind == f.Kind || v.Kind == val.KindNull || v.Kind == val.KindNone {
		return v, nil
	}
	return val.Value{}, typeMismatch(f.Name, f.Kind, v.Kind)
}
