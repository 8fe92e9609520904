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

// Event is a Table-scoped trigger definition (§3: "Table -> Events").
// The trigger body/action language is out of scope; only its
// definition lifecycle is modeled here.
type Event struct {
	ID      uint32
	TableID uint32
	Name    string
	When    string
}

func eventFromDef(tableID uint32, d Def) Event {
	when := ""
	if d.Data.Kind == val.KindString {
		when = d.Data.Str
	}
	return Event{ID: d.ID, TableID: tableID, Name: d.Name, When: when}
}

func CreateEvent(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, name, when string) (Event, error) {
	d, err := createDef(ctx, store, keycodec.LevelTable, keycodec.EntityEvent, []uint32{nsID, dbID, tableID}, name, val.String(when))
	return eventFromDef(tableID, d), err
}

func GetEvent(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, name string) (Event, bool, error) {
	d, ok, err := getDef(ctx, store, keycodec.LevelTable, keycodec.EntityEvent, []uint32{nsID, dbID, tableID}, name)
	return eventFromDef(tableID, d), ok, err
}

func AllEvents(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32) ([]Event, error) {
	defs, err := allDefs(ctx, store, keycodec.LevelTable, keycodec.EntityEvent, []uint32{nsID, dbID, tableID})
	if err != nil {
		return nil, err
	}
	out := make([]Event, len(defs))
	for i, d := range defs {
		out[i] = eventFromDef(tableID, d)
	}
	return out, nil
}

func RemoveEvent(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, name string) error {
	return removeDef(ctx, store, keycodec.LevelTable, keycodec.EntityEvent, []uint32{nsID, dbID, tableID}, name)
}
