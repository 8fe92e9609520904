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

// View is a materialized table reference (§3: "Table -> ... Views
// (materialized table refs)"): it names the source table its rows are
// projected/aggregated from. The projection/aggregation expression
// language is out of scope; only the reference is modeled.
type View struct {
	ID          uint32
	TableID     uint32
	Name        string
	SourceTable string
}

func viewFromDef(tableID uint32, d Def) View {
	source := ""
	if d.Data.Kind == val.KindString {
		source = d.Data.Str
	}
	return View{ID: d.ID, TableID: tableID, Name: d.Name, SourceTable: source}
}

func CreateView(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, name, sourceTable string) (View, error) {
	d, err := createDef(ctx, store, keycodec.LevelTable, keycodec.EntityView, []uint32{nsID, dbID, tableID}, name, val.String(sourceTable))
	return viewFromDef(tableID, d), err
}

func GetView(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, name string) (View, bool, error) {
	d, ok, err := getDef(ctx, store, keycodec.LevelTable, keycodec.EntityView, []uint32{nsID, dbID, tableID}, name)
	return viewFromDef(tableID, d), ok, err
}

func AllViews(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32) ([]View, error) {
	defs, err := allDefs(ctx, store, keycodec.LevelTable, keycodec.EntityView, []uint32{nsID, dbID, tableID})
	if err != nil {
		return nil, err
	}
	out := make([]View, len(defs))
	for i, d := range defs {
		out[i] = viewFromDef(tableID, d)
	}
	return out, nil
}

func RemoveView(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, name string) error {
	return removeDef(ctx, store, keycodec.LevelTable, keycodec.EntityView, []uint32{nsID, dbID, tableID}, name)
}
