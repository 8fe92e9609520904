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

// User is defined at Root, Namespace, or Database level (§3: "Root ->
// Users", "Namespace -> Users", "Database -> Users"), so unlike the
// single-level entities its accessors take Level and parentIDs
// explicitly rather than hardcoding a fixed nesting shape.
type User struct {
	ID           uint32
	Level        keycodec.Level
	ParentIDs    []uint32
	Name         string
	PasswordHash string
	Roles        []string
}

func userData(passwordHash string, roles []string) val.Value {
	rs := make([]val.Value, len(roles))
	for i, r := range roles {
		rs[i] = val.String(r)
	}
	return val.Obj(map[string]val.Value{
		"password_hash": val.String(passwordHash),
		"roles":         val.Arr(rs),
	})
}

func userFromDef(level keycodec.Level, parentIDs []uint32, d Def) User {
	u := User{ID: d.ID, Level: level, ParentIDs: parentIDs, Name: d.Name}
	if d.Data.Kind != val.KindObject {
		return u
	}
	if p, ok := d.Data.Object["password_hash"]; ok {
		u.PasswordHash = p.Str
	}
	for _, r := range d.Data.Object["roles"].Array {
		u.Roles = append(u.Roles, r.Str)
	}
	return u
}

func CreateUser(ctx context.Context, store *txstore.Store, level keycodec.Level, parentIDs []uint32, name, passwordHash string, roles []string) (User, error) {
	d, err := createDef(ctx, store, level, keycodec.EntityUser, parentIDs, name, userData(passwordHash, roles))
	return userFromDef(level, parentIDs, d), err
}

func GetUser(ctx context.Context, store *txstore.Store, level keycodec.Level, parentIDs []uint32, name string) (User, bool, error) {
	d, ok, err := getDef(ctx, store, level, keycodec.EntityUser, parentIDs, name)
	return userFromDef(level, parentIDs, d), ok, err
}

func AllUsers(ctx context.Context, store *txstore.Store, level keycodec.Level, parentIDs []uint32) ([]User, error) {
	defs, err := allDefs(ctx, store, level, keycodec.EntityUser, parentIDs)
	if err != nil {
		return nil, err
	}
	out := make([]User, len(defs))
	for i, d := range defs {
		out[i] = userFromDef(level, parentIDs, d)
	}
	return out, nil
}

func AlterUser(ctx context.Context, store *txstore.Store, level keycodec.Level, parentIDs []uint32, name, passwordHash string, roles []string) (User, error) {
	d, err := alterDef(ctx, store, level, keycodec.EntityUser, parentIDs, name, func(d *Def) {
		d.Data = userData(passwordHash, roles)
	})
	return userFromDef(level, parentIDs, d), err
}

func RemoveUser(ctx context.Context, store *txstore.Store, level keycodec.Level, parentIDs []uint32, name string) error {
	return removeDef(ctx, store, level, keycodec.EntityUser, parentIDs, name)
}
