// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package kv

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// LimitedDB wraps a DB and bounds the number of transactions open at
// once, the way a real backend's fixed reader-slot budget (MDBX's
// max_readers, out of scope here per §1, but the concern still applies
// to the in-memory reference backend under sustained concurrent load)
// would. BeginTx blocks until a slot frees or ctx is done.
type LimitedDB struct {
	db  DB
	sem *semaphore.Weighted
}

// NewLimitedDB wraps db, allowing at most maxConcurrent transactions
// open simultaneously.
func NewLimitedDB(db DB, maxConcurrent int64) *LimitedDB {
	return &LimitedDB{db: db, sem: semaphore.NewWeighted(maxConcurrent)}
}

func (l *LimitedDB) BeginTx(ctx context.Context, mode Mode, lock Lock) (RwTx, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	tx, err := l.db.BeginTx(ctx, mode, lock)
	if err != nil {
		l.sem.Release(1)
		return nil, err
	}
	return &limitedTx{RwTx: tx, sem: l.sem}, nil
}

// limitedTx releases its semaphore slot exactly once, on whichever of
// Commit/Cancel finishes the transaction first.
type limitedTx struct {
	RwTx
	sem     *semaphore.Weighted
	release sync.Once
}

func (t *limitedTx) Commit(ctx context.Context) error {
	err := t.RwTx.Commit(ctx)
	t.release.Do(func() { t.sem.Release(1) })
	return err
}

func (t *limitedTx) Cancel(ctx context.Context) error {
	err := t.RwTx.Cancel(ctx)
	t.release.Do(func() { t.sem.Release(1) })
	return err
}
