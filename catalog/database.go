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

// Database lives under a Namespace (§3: "Namespace -> ... Databases").
type Database struct {
	ID          uint32
	NamespaceID uint32
	Name        string
	Comment     string
}

func databaseFromDef(nsID uint32, d Def) Database {
	comment := ""
	if d.Data.Kind == val.KindString {
		comment = d.Data.Str
	}
	return Database{ID: d.ID, NamespaceID: nsID, Name: d.Name, Comment: comment}
}

func CreateDatabase(ctx context.Context, store *txstore.Store, nsID uint32, name string) (Database, error) {
	d, err := createDef(ctx, store, keycodec.LevelNamespace, keycodec.EntityDatabase, []uint32{nsID}, name, val.String(""))
	return databaseFromDef(nsID, d), err
}

func GetDatabase(ctx context.Context, store *txstore.Store, nsID uint32, name string) (Database, bool, error) {
	d, ok, err := getDef(ctx, store, keycodec.LevelNamespace, keycodec.EntityDatabase, []uint32{nsID}, name)
	return databaseFromDef(nsID, d), ok, err
}

func GetDatabaseByID(ctx context.Context, store *txstore.Store, nsID, id uint32) (Database, bool, error) {
	d, ok, err := getDefByID(ctx, store, keycodec.LevelNamespace, keycodec.EntityDatabase, []uint32{nsID}, id)
	return databaseFromDef(nsID, d), ok, err
}

func GetOrAddDatabase(ctx context.Context, store *txstore.Store, nsID uint32, name string, strict bool) (Database, error) {
	d, err := getOrAddDef(ctx, store, keycodec.LevelNamespace, keycodec.EntityDatabase, []uint32{nsID}, name, strict, func() val.Value { return val.String("") })
	return databaseFromDef(nsID, d), err
}

func AllDatabases(ctx context.Context, store *txstore.Store, nsID uint32) ([]Database, error) {
	defs, err := allDefs(ctx, store, keycodec.LevelNamespace, keycodec.EntityDatabase, []uint32{nsID})
	if err != nil {
		return nil, err
	}
	out := make([]Database, len(defs))
	for i, d := range defs {
		out[i] = databaseFromDef(nsID, d)
	}
	return out, nil
}

func AlterDatabase(ctx context.Context, store *txstore.Store, nsID uint32, name, comment string) (Database, error) {
	d, err := alterDef(ctx, store, keycodec.LevelNamespace, keycodec.EntityDatabase, []uint32{nsID}, name, func(d *Def) {
		d.Data = val.String(comment)
	})
	return databaseFromDef(nsID, d), err
}

func RemoveDatabase(ctx context.Context, store *txstore.Store, nsID uint32, name string) error {
	return removeDef(ctx, store, keycodec.LevelNamespace, keycodec.EntityDatabase, []uint32{nsID}, name)
}
