// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package kv declares the abstract transactional ordered byte-map the
// core consumes (spec §4.1). Concrete backends (MDBX, TiKV, ...) are
// explicitly out of scope; this package only fixes the contract plus
// one in-memory reference backend under kv/memkv for tests.
//
// Naming follows the teacher's convention
// (erigon-lib/kv/kv_interface.go):
//
//	Variables: tx - transaction, k/v - key/value, lo/hi - range bounds.
//	Methods:   Get is an exact match; Scan is a half-open [lo, hi) walk.
//	Entity:    Tx is read-only; RwTx additionally allows mutation.
package kv

import "context"

// Mode selects the isolation a transaction begins with.
type Mode int

const (
	Read Mode = iota
	Write
)

// Lock selects the conflict-detection strategy a write transaction
// uses (§4.1 begin(mode, lock)).
type Lock int

const (
	Optimistic Lock = iota
	Pessimistic
)

// Pair is a single (k, v) result from Scan.
type Pair struct {
	K []byte
	V []byte
}

// Tx is a read-only transactional view with snapshot semantics fixed
// at begin-time (§4.1).
type Tx interface {
	// Get returns the value at k, and ok=false if k is absent.
	Get(ctx context.Context, k []byte) (v []byte, ok bool, err error)

	// Scan returns up to limit (k,v) pairs in ascending key order,
	// strictly within the half-open range [lo, hi).
	Scan(ctx context.Context, lo, hi []byte, limit int) ([]Pair, error)

	// Cancel discards the transaction. After Cancel, every further
	// operation fails with errs.ErrTxFinished.
	Cancel(ctx context.Context) error

	// Done reports whether Commit or Cancel has already been called.
	Done() bool
}

// RwTx additionally allows mutation within the transaction.
type RwTx interface {
	Tx

	// Set unconditionally writes k=v.
	Set(ctx context.Context, k, v []byte) error

	// Put inserts k=v iff k is currently absent, else
	// errs.ErrKeyExists.
	Put(ctx context.Context, k, v []byte) error

	// Del removes k, a no-op if absent.
	Del(ctx context.Context, k []byte) error

	// PutC is a compare-and-set: it writes k=v iff the current value
	// at k equals check exactly (check == nil means "k must be
	// absent").
	PutC(ctx context.Context, k, v, check []byte) error

	// GetR, DelR, DelP are bulk variants implemented over Scan+Del
	// (§4.1: "Tx.getr/delr/delp are bulk variants implemented over
	// scan+del").
	GetR(ctx context.Context, lo, hi []byte, limit int) ([]Pair, error)
	DelR(ctx context.Context, lo, hi []byte, limit int) (deleted int, err error)
	DelP(ctx context.Context, prefix []byte) (deleted int, err error)

	// ReadSequence allocates and returns the next value of the
	// monotonic counter stored at k, used by catalog to mint stable
	// numeric entity ids (§3).
	ReadSequence(ctx context.Context, k []byte) (uint64, error)

	// Commit attempts to durably apply every write. On a detected
	// optimistic conflict it returns errs.ErrTxConflict; after either
	// outcome the transaction is finished.
	Commit(ctx context.Context) error
}

// DB opens transactions against the underlying ordered byte-map.
type DB interface {
	BeginTx(ctx context.Context, mode Mode, lock Lock) (RwTx, error)
}

// MaxBulkBatch caps the pairs memkv's Scan (and so GetR/DelR) returns
// per call; DelP and txstore.AllDefs repeat MaxBulkBatch-sized pages
// until the range is exhausted.
const MaxBulkBatch = 1000
