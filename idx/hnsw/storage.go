// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package hnsw

import (
	"encoding/binary"

	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/keycodec"
	"github.com/coredb-io/kernel/val"
)

// storage binds the three §6 HNSW key families (plus the state key) to
// this index's (ns, db, table, index) coordinates.
type storage struct {
	nsID, dbID, tableID, indexID uint32
}

func (s storage) stateKey() []byte {
	return keycodec.HnswStateKey(s.nsID, s.dbID, s.tableID, s.indexID)
}

func (s storage) layerKey(layer uint16, id uint64) []byte {
	return keycodec.HnswLayerKey(s.nsID, s.dbID, s.tableID, s.indexID, layer, id)
}

func (s storage) layerPrefix(layer uint16) []byte {
	return keycodec.HnswLayerPrefix(s.nsID, s.dbID, s.tableID, s.indexID, layer)
}

func (s storage) layerSuffix(layer uint16) []byte {
	return keycodec.HnswLayerSuffix(s.nsID, s.dbID, s.tableID, s.indexID, layer)
}

func (s storage) vectorKey(id uint64) []byte {
	return keycodec.HnswVectorKey(s.nsID, s.dbID, s.tableID, s.indexID, id)
}

func (s storage) vectorPrefix() []byte {
	return keycodec.HnswVectorPrefix(s.nsID, s.dbID, s.tableID, s.indexID)
}

func (s storage) vectorSuffix() []byte {
	return keycodec.HnswVectorSuffix(s.nsID, s.dbID, s.tableID, s.indexID)
}

func (s storage) pendingKey(seq uint64) []byte {
	return keycodec.HnswPendingKey(s.nsID, s.dbID, s.tableID, s.indexID, seq)
}

func (s storage) pendingPrefix() []byte {
	return keycodec.HnswPendingPrefix(s.nsID, s.dbID, s.tableID, s.indexID)
}

func (s storage) pendingSuffix() []byte {
	return keycodec.HnswPendingSuffix(s.nsID, s.dbID, s.tableID, s.indexID)
}

// element is one graph element's persisted payload: the vector plus
// enough to reconstruct the owning record (§4.8's VectorId materializes
// RecordKey<->DocId; storing both inline here avoids a fifth key
// family beyond the four §6 names).
type element struct {
	DocID     uint64
	RecordKey val.RecordIdKey
	Vector    Vector
}

func encodeElement(e element) ([]byte, error) {
	keyBytes, err := keycodec.EncodeRecordIdKey(e.RecordKey)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 4+len(keyBytes)+8)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(keyBytes)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, keyBytes...)
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], e.DocID)
	buf = append(buf, idBuf[:]...)
	buf = append(buf, encodeVector(e.Vector)...)
	return buf, nil
}

func decodeElement(b []byte) (element, error) {
	if len(b) < 4 {
		return element{}, errs.New(errs.IndexError, "hnsw: truncated element")
	}
	n := binary.BigEndian.Uint32(b)
	b = b[4:]
	if uint32(len(b)) < n+8 {
		return element{}, errs.New(errs.IndexError, "hnsw: truncated element body")
	}
	key, err := keycodec.DecodeRecordIdKey(b[:n])
	if err != nil {
		return element{}, err
	}
	b = b[n:]
	docID := binary.BigEndian.Uint64(b[:8])
	v, _, err := decodeVector(b[8:])
	if err != nil {
		return element{}, err
	}
	return element{DocID: docID, RecordKey: key, Vector: v}, nil
}

func encodeNeighbors(tag byte, ids []uint64) []byte {
	buf := make([]byte, 1+4+8*len(ids))
	buf[0] = tag
	binary.BigEndian.PutUint32(buf[1:], uint32(len(ids)))
	for i, id := range ids {
		binary.BigEndian.PutUint64(buf[5+8*i:], id)
	}
	return buf
}

func decodeNeighbors(b []byte) (tag byte, ids []uint64, err error) {
	if len(b) < 5 {
		return 0, nil, errs.New(errs.IndexError, "hnsw: truncated adjacency record")
	}
	tag = b[0]
	n := binary.BigEndian.Uint32(b[1:5])
	b = b[5:]
	if uint32(len(b)) < n*8 {
		return 0, nil, errs.New(errs.IndexError, "hnsw: truncated adjacency body")
	}
	ids = make([]uint64, n)
	for i := range ids {
		ids[i] = binary.BigEndian.Uint64(b[8*i:])
	}
	return tag, ids, nil
}
