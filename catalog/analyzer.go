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

// Analyzer is a Database-scoped full-text tokenization/filter pipeline
// definition (§3: "Database -> ... Analyzers"). The tokenizer/filter
// chain itself is out of scope; only the named definition is modeled.
type Analyzer struct {
	ID         uint32
	DatabaseID uint32
	Name       string
	Tokenizers []string
	Filters    []string
}

func analyzerData(a Analyzer) val.Value {
	tok := make([]val.Value, len(a.Tokenizers))
	for i, t := range a.Tokenizers {
		tok[i] = val.String(t)
	}
	fil := make([]val.Value, len(a.Filters))
	for i, f := range a.Filters {
		fil[i] = val.String(f)
	}
	return val.Obj(map[string]val.Value{"tokenizers": val.Arr(tok), "filters": val.Arr(fil)})
}

func analyzerFromDef(dbID uint32, d Def) Analyzer {
	a := Analyzer{ID: d.ID, DatabaseID: dbID, Name: d.Name}
	if d.Data.Kind != val.KindObject {
		return a
	}
	for _, t := range d.Data.Object["tokenizers"].Array {
		a.Tokenizers = append(a.Tokenizers, t.Str)
	}
	for _, f := range d.Data.Object["filters"].Array {
		a.Filters = append(a.Filters, f.Str)
	}
	return a
}

func CreateAnalyzer(ctx context.Context, store *txstore.Store, nsID, dbID uint32, a Analyzer) (Analyzer, error) {
	d, err := createDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityAnalyzer, []uint32{nsID, dbID}, a.Name, analyzerData(a))
	return analyzerFromDef(dbID, d), err
}

func GetAnalyzer(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string) (Analyzer, bool, error) {
	d, ok, err := getDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityAnalyzer, []uint32{nsID, dbID}, name)
	return analyzerFromDef(dbID, d), ok, err
}

func AllAnalyzers(ctx context.Context, store *txstore.Store, nsID, dbID uint32) ([]Analyzer, error) {
	defs, err := allDefs(ctx, store, keycodec.LevelDatabase, keycodec.EntityAnalyzer, []uint32{nsID, dbID})
	if err != nil {
		return nil, err
	}
	out := make([]Analyzer, len(defs))
	for i, d := range defs {
		out[i] = analyzerFromDef(dbID, d)
	}
	return out, nil
}

func RemoveAnalyzer(ctx context.Context, store *txstore.Store, nsID, dbID uint32, name string) error {
	return removeDef(ctx, store, keycodec.LevelDatabase, keycodec.EntityAnalyzer, []uint32{nsID, dbID}, name)
}
