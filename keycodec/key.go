// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package keycodec

import (
	"encoding/binary"

	"github.com/coredb-io/kernel/errs"
)

func putUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendParentIDs(buf []byte, parentIDs []uint32) []byte {
	for _, id := range parentIDs {
		buf = putUint32(buf, id)
	}
	return buf
}

// defPrefix builds the fixed-width prefix common to every key in a
// (level, kind) definition family: the family tag, the level, the
// entity kind, and the parent id chain.
func defPrefix(tag byte, level Level, kind EntityKind, parentIDs []uint32) []byte {
	if len(parentIDs) != level.parentIDCount() {
		panic("keycodec: wrong parent id count for level")
	}
	buf := make([]byte, 0, 2+len(parentIDs)*4+8)
	buf = append(buf, tag, byte(level), byte(kind))
	buf = appendParentIDs(buf, parentIDs)
	return buf
}

// DefByNameKey builds the primary catalog definition key: definitions
// are addressed by name, as DEFINE statements create them (§3: "Each
// entity is identified by a string name unique within its parent").
func DefByNameKey(level Level, kind EntityKind, parentIDs []uint32, name string) []byte {
	buf := defPrefix(famDefByName, level, kind, parentIDs)
	return append(buf, []byte(name)...)
}

// DefByNamePrefix/DefByNameSuffix bracket every by-name definition key
// under parentIDs for this (level,kind), for use with `all_*` scans
// (§4.4) — the half-open range [Prefix, Suffix) is a complete
// enumeration per §4.2.
func DefByNamePrefix(level Level, kind EntityKind, parentIDs []uint32) []byte {
	return defPrefix(famDefByName, level, kind, parentIDs)
}

func DefByNameSuffix(level Level, kind EntityKind, parentIDs []uint32) []byte {
	return append(DefByNamePrefix(level, kind, parentIDs), 0xff)
}

// DefByIDKey builds the secondary index from (parent ids, numeric id)
// back to the definition's name, satisfying §3's "lookup by either
// [name or id] must return the same record" — the stored value is the
// name, which the caller re-resolves through DefByNameKey.
func DefByIDKey(level Level, kind EntityKind, parentIDs []uint32, id uint32) []byte {
	buf := defPrefix(famDefByID, level, kind, parentIDs)
	return putUint32(buf, id)
}

// SequenceKey builds the kv.RwTx.ReadSequence key that mints the
// stable numeric id for a newly created entity at this (level, kind)
// under parentIDs (§3: "every entity carries a numeric id assigned on
// creation that is stable and used as the key prefix component for
// physical addressing").
func SequenceKey(level Level, kind EntityKind, parentIDs []uint32) []byte {
	return defPrefix(famSeq, level, kind, parentIDs)
}

// RowKey builds the physical key for a table row ("thing" key),
// addressed by the table's numeric id rather than its name for
// compact physical addressing (§3: "every entity carries a numeric id
// ... used as the key prefix component for physical addressing").
func RowKey(nsID, dbID, tableID uint32, encodedRecordIDKey []byte) []byte {
	buf := make([]byte, 0, 1+12+len(encodedRecordIDKey))
	buf = append(buf, famRow)
	buf = putUint32(buf, nsID)
	buf = putUint32(buf, dbID)
	buf = putUint32(buf, tableID)
	return append(buf, encodedRecordIDKey...)
}

func RowPrefix(nsID, dbID, tableID uint32) []byte {
	buf := make([]byte, 0, 13)
	buf = append(buf, famRow)
	buf = putUint32(buf, nsID)
	buf = putUint32(buf, dbID)
	return putUint32(buf, tableID)
}

func RowSuffix(nsID, dbID, tableID uint32) []byte {
	return append(RowPrefix(nsID, dbID, tableID), 0xff)
}

// HnswStateKey/HnswLayerKey/HnswVectorKey/HnswPendingKey build the
// per-index key families of §4.8/§6.
func HnswStateKey(nsID, dbID, tableID, indexID uint32) []byte {
	buf := make([]byte, 0, 17)
	buf = append(buf, famHnswState)
	buf = putUint32(buf, nsID)
	buf = putUint32(buf, dbID)
	buf = putUint32(buf, tableID)
	return putUint32(buf, indexID)
}

func hnswIndexPrefix(tag byte, nsID, dbID, tableID, indexID uint32) []byte {
	buf := make([]byte, 0, 17)
	buf = append(buf, tag)
	buf = putUint32(buf, nsID)
	buf = putUint32(buf, dbID)
	buf = putUint32(buf, tableID)
	return putUint32(buf, indexID)
}

func HnswLayerKey(nsID, dbID, tableID, indexID uint32, layer uint16, elementID uint64) []byte {
	buf := hnswIndexPrefix(famHnswLayer, nsID, dbID, tableID, indexID)
	buf = putUint16(buf, layer)
	return putUint64(buf, elementID)
}

func HnswLayerPrefix(nsID, dbID, tableID, indexID uint32, layer uint16) []byte {
	buf := hnswIndexPrefix(famHnswLayer, nsID, dbID, tableID, indexID)
	return putUint16(buf, layer)
}

func HnswLayerSuffix(nsID, dbID, tableID, indexID uint32, layer uint16) []byte {
	return append(HnswLayerPrefix(nsID, dbID, tableID, indexID, layer), 0xff)
}

func HnswVectorKey(nsID, dbID, tableID, indexID uint32, elementID uint64) []byte {
	buf := hnswIndexPrefix(famHnswVector, nsID, dbID, tableID, indexID)
	return putUint64(buf, elementID)
}

func HnswVectorPrefix(nsID, dbID, tableID, indexID uint32) []byte {
	return hnswIndexPrefix(famHnswVector, nsID, dbID, tableID, indexID)
}

func HnswVectorSuffix(nsID, dbID, tableID, indexID uint32) []byte {
	return append(HnswVectorPrefix(nsID, dbID, tableID, indexID), 0xff)
}

func HnswPendingKey(nsID, dbID, tableID, indexID uint32, seq uint64) []byte {
	buf := hnswIndexPrefix(famHnswPending, nsID, dbID, tableID, indexID)
	return putUint64(buf, seq)
}

func HnswPendingPrefix(nsID, dbID, tableID, indexID uint32) []byte {
	return hnswIndexPrefix(famHnswPending, nsID, dbID, tableID, indexID)
}

func HnswPendingSuffix(nsID, dbID, tableID, indexID uint32) []byte {
	return append(HnswPendingPrefix(nsID, dbID, tableID, indexID), 0xff)
}

var errBadRange = errs.New(errs.Internal, "keycodec: malformed range")
