// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package memkv is the reference in-memory implementation of kv.DB
// (spec §1: "we specify only the KV interface the core consumes" —
// concrete production backends are out of scope; this one exists so
// the rest of the kernel has something to run against in tests).
//
// Snapshot isolation is built on github.com/google/btree's
// copy-on-write BTreeG.Clone (grounded on the teacher's
// core/state/history_reader_v3.go commented-out btree.New usage,
// generalized to a full ordered byte-map): BeginTx clones the current
// committed tree in O(1), and every read is answered from that frozen
// clone. Commit re-validates every key the transaction read against
// the live committed tree and fails with errs.ErrTxConflict if any of
// them changed underneath it — an optimistic, single-version
// concurrency scheme adequate for a reference/test backend.
package memkv

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/btree"

	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/kv"
)

type item struct {
	key   []byte
	value []byte
}

func less(a, b item) bool { return bytes.Compare(a.key, b.key) < 0 }

// DB is an in-memory kv.DB. The zero value is not usable; use New.
type DB struct {
	mu        sync.Mutex
	committed *btree.BTreeG[item]
	sequences map[string]uint64
}

func New() *DB {
	return &DB{
		committed: btree.NewG(32, less),
		sequences: make(map[string]uint64),
	}
}

func (db *DB) BeginTx(_ context.Context, mode kv.Mode, lock kv.Lock) (kv.RwTx, error) {
	db.mu.Lock()
	snapshot := db.committed.Clone()
	db.mu.Unlock()

	return &tx{
		db:       db,
		mode:     mode,
		lock:     lock,
		snapshot: snapshot,
		writes:   make(map[string]*[]byte),
		reads:    make(map[string][]byte),
		readTomb: make(map[string]bool),
	}, nil
}

type tx struct {
	db       *DB
	mode     kv.Mode
	lock     kv.Lock
	snapshot *btree.BTreeG[item]

	// writes maps key -> pointer to value, or nil pointer meaning
	// "deleted in this tx".
	writes   map[string]*[]byte
	reads    map[string][]byte
	readTomb map[string]bool
	finished bool
}

func (t *tx) checkOpen() error {
	if t.finished {
		return errs.ErrTxFinished
	}
	return nil
}

func (t *tx) snapshotGet(k []byte) ([]byte, bool) {
	found, ok := t.snapshot.Get(item{key: k})
	if !ok {
		return nil, false
	}
	return found.value, true
}

func (t *tx) Get(_ context.Context, k []byte) ([]byte, bool, error) {
	if err := t.checkOpen(); err != nil {
		return nil, false, err
	}
	if w, ok := t.writes[string(k)]; ok {
		if w == nil {
			return nil, false, nil
		}
		return *w, true, nil
	}
	v, ok := t.snapshotGet(k)
	t.recordRead(k, v, ok)
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

func (t *tx) recordRead(k, v []byte, ok bool) {
	key := string(k)
	if _, already := t.reads[key]; already {
		return
	}
	if _, already := t.readTomb[key]; already {
		return
	}
	if ok {
		t.reads[key] = v
	} else {
		t.readTomb[key] = true
	}
}

func (t *tx) Scan(_ context.Context, lo, hi []byte, limit int) ([]kv.Pair, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > kv.MaxBulkBatch {
		limit = kv.MaxBulkBatch
	}

	merged := map[string][]byte{}
	tomb := map[string]bool{}
	t.snapshot.AscendRange(item{key: lo}, item{key: hi}, func(it item) bool {
		merged[string(it.key)] = it.value
		return true
	})
	for k, w := range t.writes {
		if bytes.Compare([]byte(k), lo) < 0 || bytes.Compare([]byte(k), hi) >= 0 {
			continue
		}
		if w == nil {
			tomb[k] = true
			delete(merged, k)
			continue
		}
		merged[k] = *w
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]kv.Pair, 0, limit)
	for _, k := range keys {
		if len(out) >= limit {
			break
		}
		out = append(out, kv.Pair{K: []byte(k), V: merged[k]})
	}
	return out, nil
}

func (t *tx) Set(_ context.Context, k, v []byte) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	vv := append([]byte(nil), v...)
	t.writes[string(k)] = &vv
	return nil
}

func (t *tx) Put(ctx context.Context, k, v []byte) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	_, exists, err := t.Get(ctx, k)
	if err != nil {
		return err
	}
	if exists {
		return errs.ErrKeyExists
	}
	return t.Set(ctx, k, v)
}

func (t *tx) Del(_ context.Context, k []byte) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	t.writes[string(k)] = nil
	return nil
}

func (t *tx) PutC(ctx context.Context, k, v, check []byte) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	cur, exists, err := t.Get(ctx, k)
	if err != nil {
		return err
	}
	if check == nil {
		if exists {
			return errs.New(errs.KeyExists, "putc: key %q already present", k)
		}
	} else {
		if !exists || !bytes.Equal(cur, check) {
			return errs.New(errs.Internal, "putc: current value of %q does not match check", k)
		}
	}
	return t.Set(ctx, k, v)
}

func (t *tx) GetR(ctx context.Context, lo, hi []byte, limit int) ([]kv.Pair, error) {
	return t.Scan(ctx, lo, hi, limit)
}

func (t *tx) DelR(ctx context.Context, lo, hi []byte, limit int) (int, error) {
	pairs, err := t.Scan(ctx, lo, hi, limit)
	if err != nil {
		return 0, err
	}
	for _, p := range pairs {
		if err := t.Del(ctx, p.K); err != nil {
			return 0, err
		}
	}
	return len(pairs), nil
}

func (t *tx) DelP(ctx context.Context, prefix []byte) (int, error) {
	hi := append(append([]byte{}, prefix...), 0xff)
	deleted := 0
	for {
		n, err := t.DelR(ctx, prefix, hi, kv.MaxBulkBatch)
		if err != nil {
			return deleted, err
		}
		deleted += n
		if n < kv.MaxBulkBatch {
			return deleted, nil
		}
	}
}

func (t *tx) ReadSequence(_ context.Context, k []byte) (uint64, error) {
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	next := t.db.sequences[string(k)] + 1
	t.db.sequences[string(k)] = next
	return next, nil
}

func (t *tx) Commit(_ context.Context) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	t.finished = true

	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	for k, v := range t.reads {
		cur, ok := t.db.committed.Get(item{key: []byte(k)})
		if !ok || !bytes.Equal(cur.value, v) {
			return errs.New(errs.TxConflict, "key %q changed since transaction began", k)
		}
	}
	for k := range t.readTomb {
		if _, ok := t.db.committed.Get(item{key: []byte(k)}); ok {
			return errs.New(errs.TxConflict, "key %q was created since transaction began", k)
		}
	}

	newTree := t.db.committed.Clone()
	for k, w := range t.writes {
		if w == nil {
			newTree.Delete(item{key: []byte(k)})
			continue
		}
		newTree.ReplaceOrInsert(item{key: []byte(k), value: *w})
	}
	t.db.committed = newTree
	return nil
}

func (t *tx) Cancel(_ context.Context) error {
	if t.finished {
		return errs.ErrTxFinished
	}
	t.finished = true
	return nil
}

func (t *tx) Done() bool { return t.finished }

