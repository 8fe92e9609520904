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

// Param is a Database-scoped named constant value (§3: "Database ->
// ... Params"), referenced elsewhere as $name.
type Param struct {
	ID         uint32
	DatabaseID uint32
	Name       string
	Value      val.Value
}

func paramFromDef(dbID uint32, d Def) Param {
	return Param{ID: d.ID, DatabaseID: dbID, Name: d.Name, Value: d.Data}
}

func CreateParam(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string, value val.Value) (Param, error) {
	d, err := createDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityParam, []uint32{nsID, dbID}, name, value)
	return paramFromDef(dbID, d), err
}

func GetParam(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string) (Param, bool, error) {
	d, ok, err := getDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityParam, []uint32{nsID, dbID}, name)
	return paramFromDef(dbID, d), ok, err
}

func AllParams(ctx context.Context, store *txstore.Store, nsID, dbID uint32) ([]Param, error) {
	defs, err := allDefs(ctx, store, keycodec.LevelDatabase, keycodec.EntityParam, []uint32{nsID, dbID})
	if err != nil {
		return nil, err
	}
	out := make([]Param, len(defs))
	for i, d := range defs {
		out[i] = paramFromDef(dbID, d)
	}
	return out, nil
}

func AlterParam(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string, value val.Value) (Param, error) {
	d, err := alterDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityParam, []uint32{nsID, dbID}, name, func(d *Def) {
		d.Data = value
	})
	return paramFromDef(dbID, d), err
}

func RemoveParam(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string) error {
	return removeDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityParam, []uint32{nsID, dbID}, name)
}
