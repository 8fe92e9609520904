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

// Function is a Database-scoped user-defined function definition (§3:
// "Database -> ... Functions"). The function body language is out of
// scope; only arity and the definition lifecycle are modeled.
type Function struct {
	ID         uint32
	DatabaseID uint32
	Name       string
	Args       []string
}

func functionFromDef(dbID uint32, d Def) Function {
	f := Function{ID: d.ID, DatabaseID: dbID, Name: d.Name}
	if d.Data.Kind == val.KindArray {
		for _, a := range d.Data.Array {
			f.Args = append(f.Args, a.Str)
		}
	}
	return f
}

func functionData(args []string) val.Value {
	vs := make([]val.Value, len(args))
	for i, a := range args {
		vs[i] = val.String(a)
	}
	return val.Arr(vs)
}

func CreateFunction(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string, args []string) (Function, error) {
	d, err := createDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityFunction, []uint32{nsID, dbID}, name, functionData(args))
	return functionFromDef(dbID, d), err
}

func GetFunction(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string) (Function, bool, error) {
	d, ok, err := getDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityFunction, []uint32{nsID, dbID}, name)
	return functionFromDef(dbID, d), ok, err
}

func AllFunctions(ctx context.Context, store *txstore.Store, nsID, dbID uint32) ([]Function, error) {
	defs, err := allDefs(ctx, store, keycodec.LevelDatabase, keycodec.EntityFunction, []uint32{nsID, dbID})
	if err != nil {
		return nil, err
	}
	out := make([]Function, len(defs))
	for i, d := range defs {
		out[i] = functionFromDef(dbID, d)
	}
	return out, nil
}

func RemoveFunction(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string) error {
	return removeDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityFunction, []uint32{nsID, dbID}, name)
}
