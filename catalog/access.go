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

// Access is a named access-method definition, also defined at Root,
// Namespace, or Database level (§3: "Root -> AccessMethods", "Namespace
// -> AccessMethods", "Database -> AccessMethods") — the grant or token
// scheme itself is out of scope, only the named definition lifecycle.
type Access struct {
	ID        uint32
	Level     keycodec.Level
	ParentIDs []uint32
	Name      string
	Kind      string
	Duration  string
}

func accessData(kind, duration string) val.Value {
	return val.Obj(map[string]val.Value{
		"kind":     val.String(kind),
		"duration": val.String(duration),
	})
}

func accessFromDef(level keycodec.Level, parentIDs []uint32, d Def) Access {
	a := Access{ID: d.ID, Level: level, ParentIDs: parentIDs, Name: d.Name}
	if d.Data.Kind != val.KindObject {
		return a
	}
	a.Kind = d.Data.Object["kind"].Str
	a.Duration = d.Data.Object["duration"].Str
	return a
}

func CreateAccess(ctx context.Context, store *txstore.Store, level keycodec.Level, parentIDs []uint32, name, kind, duration string) (Access, error) {
	d, err := createDef(ctx, store, level, keycodec.EntityAccess, parentIDs, name, accessData(kind, duration))
	return accessFromDef(level, parentIDs, d), err
}

func GetAccess(ctx context.Context, store *txstore.Store, level keycodec.Level, parentIDs []uint32, name string) (Access, bool, error) {
	d, ok, err := getDef(ctx, store, level, keycodec.EntityAccess, parentIDs, name)
	return accessFromDef(level, parentIDs, d), ok, err
}

func AllAccess(ctx context.Context, store *txstore.Store, level keycodec.Level, parentIDs []uint32) ([]Access, error) {
	defs, err := allDefs(ctx, store, level, keycodec.EntityAccess, parentIDs)
	if err != nil {
		return nil, err
	}
	out := make([]Access, len(defs))
	for i, d := range defs {
		out[i] = accessFromDef(level, parentIDs, d)
	}
	return out, nil
}

func RemoveAccess(ctx context.Context, store *txstore.Store, level keycodec.Level, parentIDs []uint32, name string) error {
	return removeDef(ctx, store, level, keycodec.EntityAccess, parentIDs, name)
}
