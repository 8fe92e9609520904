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

// Table lives under a Database (§3: "Database -> ... Tables"), and is
// itself a parent level for Fields/Indexes/Events/Views/LiveQueries.
type Table struct {
	ID          uint32
	NamespaceID uint32
	DatabaseID  uint32
	Name        string
	Comment     string
	// Schemafull requires every Field write to match a defined Field's
	// Kind unless that Field is declared Flexible (§3's Field
	// invariant); false allows arbitrary, undeclared fields.
	Schemafull bool
}

func tableData(comment string, schemafull bool) val.Value {
	return val.Obj(map[string]val.Value{
		"comment":    val.String(comment),
		"schemafull": val.Bool(schemafull),
	})
}

func tableFromDef(nsID, dbID uint32, d Def) Table {
	t := Table{ID: d.ID, NamespaceID: nsID, DatabaseID: dbID, Name: d.Name}
	if d.Data.Kind == val.KindObject {
		if c, ok := d.Data.Object["comment"]; ok {
			t.Comment = c.Str
		}
		if s, ok := d.Data.Object["schemafull"]; ok {
			t.Schemafull = s.Bool
		}
	}
	return t
}

func CreateTable(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string, schemafull bool) (Table, error) {
	d, err := createDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityTable, []uint32{nsID, dbID}, name, tableData("", schemafull))
	return tableFromDef(nsID, dbID, d), err
}

func GetTable(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string) (Table, bool, error) {
	d, ok, err := getDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityTable, []uint32{nsID, dbID}, name)
	return tableFromDef(nsID, dbID, d), ok, err
}

func GetTableByID(ctx context.Context, store *txstore.Store, nsID, dbID, id uint32) (Table, bool, error) {
	d, ok, err := getDefByID(ctx, store, keycodec.LevelDatabase, keycodec.EntityTable, []uint32{nsID, dbID}, id)
	return tableFromDef(nsID, dbID, d), ok, err
}

// GetOrAddTable auto-materializes a non-strict table with
// Schemafull=false (accepts any field until explicitly defined).
func GetOrAddTable(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string, strict bool) (Table, error) {
	d, err := getOrAddDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityTable, []uint32{nsID, dbID}, name, strict, func() val.Value {
		return tableData("", false)
	})
	return tableFromDef(nsID, dbID, d), err
}

func AllTables(ctx context.Context, store *txstore.Store, nsID, dbID uint32) ([]Table, error) {
	defs, err := allDefs(ctx, store, keycodec.LevelDatabase, keycodec.EntityTable, []uint32{nsID, dbID})
	if err != nil {
		return nil, err
	}
	out := make([]Table, len(defs))
	for i, d := range defs {
		out[i] = tableFromDef(nsID, dbID, d)
	}
	return out, nil
}

func AlterTable(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name, comment string, schemafull bool) (Table, error) {
	d, err := alterDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityTable, []uint32{nsID, dbID}, name, func(d *Def) {
		d.Data = tableData(comment, schemafull)
	})
	return tableFromDef(nsID, dbID, d), err
}

func RemoveTable(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string) error {
	return removeDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityTable, []uint32{nsID, dbID}, name)
}
