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

// Namespace is a top-level catalog entity (§3: "Root -> ... Namespaces").
type Namespace struct {
	ID      uint32
	Name    string
	Comment string
}

func namespaceFromDef(d Def) Namespace {
	comment := ""
	if d.Data.Kind == val.KindString {
		comment = d.Data.Str
	}
	return Namespace{ID: d.ID, Name: d.Name, Comment: comment}
}

// CreateNamespace defines a new namespace, failing with errs.KeyExists
// if name is already taken.
func CreateNamespace(ctx context.Context, store *txstore.Store, name string) (Namespace, error) {
	d, err := createDef(ctx, store, keycodec.LevelRoot, keycodec.EntityNamespace, nil, name, val.String(""))
	return namespaceFromDef(d), err
}

// GetNamespace resolves a namespace by name.
func GetNamespace(ctx context.Context, store *txstore.Store, name string) (Namespace, bool, error) {
	d, ok, err := getDef(ctx, store, keycodec.LevelRoot, keycodec.EntityNamespace, nil, name)
	return namespaceFromDef(d), ok, err
}

// GetNamespaceByID resolves a namespace by its stable numeric id.
func GetNamespaceByID(ctx context.Context, store *txstore.Store, id uint32) (Namespace, bool, error) {
	d, ok, err := getDefByID(ctx, store, keycodec.LevelRoot, keycodec.EntityNamespace, nil, id)
	return namespaceFromDef(d), ok, err
}

// GetOrAddNamespace implements §3's non-strict auto-materialization
// rule: if absent and strict=false, a namespace with no comment is
// created and returned.
func GetOrAddNamespace(ctx context.Context, store *txstore.Store, name string, strict bool) (Namespace, error) {
	d, err := getOrAddDef(ctx, store, keycodec.LevelRoot, keycodec.EntityNamespace, nil, name, strict, func() val.Value { return val.String("") })
	return namespaceFromDef(d), err
}

// AllNamespaces lists every namespace under the root.
func AllNamespaces(ctx context.Context, store *txstore.Store) ([]Namespace, error) {
	defs, err := allDefs(ctx, store, keycodec.LevelRoot, keycodec.EntityNamespace, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Namespace, len(defs))
	for i, d := range defs {
		out[i] = namespaceFromDef(d)
	}
	return out, nil
}

// AlterNamespace updates a namespace's comment.
func AlterNamespace(ctx context.Context, store *txstore.Store, name, comment string) (Namespace, error) {
	d, err := alterDef(ctx, store, keycodec.LevelRoot, keycodec.EntityNamespace, nil, name, func(d *Def) {
		d.Data = val.String(comment)
	})
	return namespaceFromDef(d), err
}

// RemoveNamespace destroys a namespace definition.
func RemoveNamespace(ctx context.Context, store *txstore.Store, name string) error {
	return removeDef(ctx, store, keycodec.LevelRoot, keycodec.EntityNamespace, nil, name)
}
