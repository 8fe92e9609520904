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

// LiveQuery is a Table-scoped subscription definition (§3: "created by
// LIVE, destroyed by KILL or by expiration of the owning session").
// Name is the subscription id delivered in reqctx.Notification.
type LiveQuery struct {
	ID            uint32
	TableID       uint32
	Name          string
	OwnerSession  string
}

func liveQueryData(ownerSession string) val.Value {
	return val.Obj(map[string]val.Value{"owner_session": val.String(ownerSession)})
}

func liveQueryFromDef(tableID uint32, d Def) LiveQuery {
	lq := LiveQuery{ID: d.ID, TableID: tableID, Name: d.Name}
	if d.Data.Kind == val.KindObject {
		if o, ok := d.Data.Object["owner_session"]; ok {
			lq.OwnerSession = o.Str
		}
	}
	return lq
}

func CreateLiveQuery(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, subscriptionID, ownerSession string) (LiveQuery, error) {
	d, err := createDef(ctx, store, keycodec.LevelTable, keycodec.EntityLiveQuery, []uint32{nsID, dbID, tableID}, subscriptionID, liveQueryData(ownerSession))
	return liveQueryFromDef(tableID, d), err
}

func GetLiveQuery(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, subscriptionID string) (LiveQuery, bool, error) {
	d, ok, err := getDef(ctx, store, keycodec.LevelTable, keycodec.EntityLiveQuery, []uint32{nsID, dbID, tableID}, subscriptionID)
	return liveQueryFromDef(tableID, d), ok, err
}

func AllLiveQueries(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32) ([]LiveQuery, error) {
	defs, err := allDefs(ctx, store, keycodec.LevelTable, keycodec.EntityLiveQuery, []uint32{nsID, dbID, tableID})
	if err != nil {
		return nil, err
	}
	out := make([]LiveQuery, len(defs))
	for i, d := range defs {
		out[i] = liveQueryFromDef(tableID, d)
	}
	return out, nil
}

// RemoveLiveQuery implements KILL: destroys the subscription
// definition (expiration of the owning session is handled by the
// caller scanning AllLiveQueries for a matching OwnerSession).
func RemoveLiveQuery(ctx context.Context, store *txstore.Store, nsID, dbID, tableID uint32, subscriptionID string) error {
	return removeDef(ctx, store, keycodec.LevelTable, keycodec.EntityLiveQuery, []uint32{nsID, dbID, tableID}, subscriptionID)
}
