// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package hnsw

import (
	"context"
	"encoding/binary"
	"hash/fnv"

	"golang.org/x/sync/errgroup"

	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/keycodec"
	"github.com/coredb-io/kernel/kv"
	"github.com/coredb-io/kernel/val"
)

// VectorId identifies the owner of a pending update: either a resolved
// numeric doc id (the common case) or a RecordKey still awaiting
// resolution (§4.8: "VectorId{DocId | RecordKey}").
type VectorId struct {
	HasDocID  bool
	DocID     uint64
	RecordKey val.RecordIdKey
}

// PendingUpdate is one queued change: the vectors the record used to
// carry (to be removed from the graph) and the vectors it carries now
// (to be inserted), keyed by VectorId (§4.8 pending-update queue).
type PendingUpdate struct {
	ID         VectorId
	OldVectors []Vector
	NewVectors []Vector
}

func encodePendingUpdate(p PendingUpdate) ([]byte, error) {
	keyBytes, err := keycodec.EncodeRecordIdKey(p.ID.RecordKey)
	if err != nil {
		return nil, err
	}
	var buf []byte
	if p.ID.HasDocID {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], p.ID.DocID)
	buf = append(buf, idBuf[:]...)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(keyBytes)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, keyBytes...)

	encodeList := func(vs []Vector) {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(vs)))
		buf = append(buf, lenBuf[:]...)
		for _, v := range vs {
			buf = append(buf, encodeVector(v)...)
		}
	}
	encodeList(p.OldVectors)
	encodeList(p.NewVectors)
	return buf, nil
}

func decodePendingUpdate(b []byte) (PendingUpdate, error) {
	if len(b) < 1+8+4 {
		return PendingUpdate{}, errs.New(errs.IndexError, "hnsw: truncated pending update")
	}
	var p PendingUpdate
	p.ID.HasDocID = b[0] == 1
	p.ID.DocID = binary.BigEndian.Uint64(b[1:9])
	n := binary.BigEndian.Uint32(b[9:13])
	b = b[13:]
	if uint32(len(b)) < n {
		return PendingUpdate{}, errs.New(errs.IndexError, "hnsw: truncated pending recordkey")
	}
	key, err := keycodec.DecodeRecordIdKey(b[:n])
	if err != nil {
		return PendingUpdate{}, err
	}
	p.ID.RecordKey = key
	b = b[n:]

	readList := func() ([]Vector, error) {
		if len(b) < 4 {
			return nil, errs.New(errs.IndexError, "hnsw: truncated pending vector list")
		}
		count := binary.BigEndian.Uint32(b[:4])
		b = b[4:]
		out := make([]Vector, 0, count)
		for i := uint32(0); i < count; i++ {
			v, rest, err := decodeVector(b)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			b = rest
		}
		return out, nil
	}
	old, err := readList()
	if err != nil {
		return PendingUpdate{}, err
	}
	p.OldVectors = old
	nw, err := readList()
	if err != nil {
		return PendingUpdate{}, err
	}
	p.NewVectors = nw
	return p, nil
}

// EnqueuePending appends a pending update to the durable queue (§4.8:
// "a PendingUpdate keyed by VectorId... index_pendings drains it").
func (ix *Index) EnqueuePending(ctx context.Context, p PendingUpdate) error {
	if !ix.write {
		return errs.New(errs.IndexError, "hnsw: enqueue requires a write transaction")
	}
	// The counter lives at the range's exclusive upper bound so it can
	// never collide with, or be picked up by, the GetR scan below.
	seq, err := ix.tx.ReadSequence(ctx, ix.st.pendingSuffix())
	if err != nil {
		return errs.Wrap(errs.IndexError, err, "hnsw: allocate pending sequence")
	}
	raw, err := encodePendingUpdate(p)
	if err != nil {
		return err
	}
	if err := ix.tx.Set(ctx, ix.st.pendingKey(seq), raw); err != nil {
		return errs.Wrap(errs.IndexError, err, "hnsw: enqueue pending update")
	}
	return nil
}

// IndexPendings drains the pending-update queue: removals first, then
// insertions, materializing any RecordKey-only VectorId to a DocId
// along the way (§4.8: "materializing RecordKey->DocId"). Drained
// entries are deleted from the queue as they're applied. docIDFor
// resolves a RecordKey-only VectorId to its numeric doc id; it is
// supplied by the caller since that resolution crosses into the
// document/table layer, out of this package's scope.
func (ix *Index) IndexPendings(ctx context.Context, docIDFor func(ctx context.Context, key val.RecordIdKey) (uint64, error)) (int, error) {
	if !ix.write {
		return 0, errs.New(errs.IndexError, "hnsw: index_pendings requires a write transaction")
	}
	pairs, err := ix.tx.GetR(ctx, ix.st.pendingPrefix(), ix.st.pendingSuffix(), kv.MaxBulkBatch)
	if err != nil {
		return 0, errs.Wrap(errs.IndexError, err, "hnsw: scan pending updates")
	}
	if len(pairs) == 0 {
		return 0, nil
	}

	type resolved struct {
		key   []byte
		docID uint64
		p     PendingUpdate
	}
	items := make([]resolved, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			p, err := decodePendingUpdate(pair.V)
			if err != nil {
				return err
			}
			docID := p.ID.DocID
			if !p.ID.HasDocID {
				id, err := docIDFor(gctx, p.ID.RecordKey)
				if err != nil {
					return err
				}
				docID = id
			}
			items[i] = resolved{key: pair.K, docID: docID, p: p}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	applied := 0
	for _, it := range items {
		for range it.p.OldVectors {
			for _, id := range append([]uint64{}, ix.docElements[it.docID]...) {
				if err := ix.Remove(ctx, id); err != nil {
					return applied, err
				}
				break
			}
		}
		for _, v := range it.p.NewVectors {
			if _, err := ix.Insert(ctx, it.docID, it.p.ID.RecordKey, v); err != nil {
				return applied, err
			}
		}
		if err := ix.tx.Del(ctx, it.key); err != nil {
			return applied, errs.Wrap(errs.IndexError, err, "hnsw: dequeue pending update")
		}
		applied++
	}
	return applied, nil
}

// vectorHash is a stable content hash used only as a grouping key by
// DocIDFromKey's fallback path, not for result reconstruction.
func vectorHash(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// DocIDFromKey resolves a grouping key for a RecordIdKey: the literal
// int for the common RecordIdKeyInt case dbs/executor.go's generateRecordId
// mints exclusively, falling back to a stable hash of the encoded key
// for every other kind. Callers without a faster doc-id lookup can use
// this directly as IndexPendings' docIDFor.
func DocIDFromKey(key val.RecordIdKey) (uint64, error) {
	if key.Kind == val.RecordIdKeyInt {
		return uint64(key.Int), nil
	}
	b, err := keycodec.EncodeRecordIdKey(key)
	if err != nil {
		return 0, err
	}
	return vectorHash(b), nil
}
