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

// Model is a Database-scoped registered ML model reference (§3:
// "Database -> ... Models"). Model invocation is out of scope; only
// the definition and its version are modeled.
type Model struct {
	ID         uint32
	DatabaseID uint32
	Name       string
	Version    string
}

func modelFromDef(dbID uint32, d Def) Model {
	version := ""
	if d.Data.Kind == val.KindString {
		version = d.Data.Str
	}
	return Model{ID: d.ID, DatabaseID: dbID, Name: d.Name, Version: version}
}

func CreateModel(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name, version string) (Model, error) {
	d, err := createDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityModel, []uint32{nsID, dbID}, name, val.String(version))
	return modelFromDef(dbID, d), err
}

func GetModel(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string) (Model, bool, error) {
	d, ok, err := getDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityModel, []uint32{nsID, dbID}, name)
	return modelFromDef(dbID, d), ok, err
}

func AllModels(ctx context.Context, store *txstore.Store, nsID, dbID uint32) ([]Model, error) {
	defs, err := allDefs(ctx, store, keycodec.LevelDatabase, keycodec.EntityModel, []uint32{nsID, dbID})
	if err != nil {
		return nil, err
	}
	out := make([]Model, len(defs))
	for i, d := range defs {
		out[i] = modelFromDef(dbID, d)
	}
	return out, nil
}

func RemoveModel(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string) error {
	return removeDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityModel, []uint32{nsID, dbID}, name)
}
