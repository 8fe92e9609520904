// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package val

import (
	"bytes"

	"github.com/google/uuid"
)

// RecordIdKeyKind is the closed tag of RecordIdKey's variants (§3:
// "RecordIdKey is one of {Int, String, Uuid, Object, Array,
// Range{start_bound, end_bound}}").
type RecordIdKeyKind int

const (
	RecordIdKeyInt RecordIdKeyKind = iota
	RecordIdKeyString
	RecordIdKeyUuid
	RecordIdKeyObject
	RecordIdKeyArray
	RecordIdKeyRange
)

// BoundKind marks a Range endpoint as unbounded, inclusive or
// exclusive.
type BoundKind int

const (
	BoundUnbounded BoundKind = iota
	BoundIncluded
	BoundExcluded
)

// Bound is one endpoint of a RecordIdKeyRange.
type Bound struct {
	Kind BoundKind
	Key  *RecordIdKey
}

// RecordIdKey is the closed sum type identifying a record within its
// table.
type RecordIdKey struct {
	Kind   RecordIdKeyKind
	Int    int64
	Str    string
	Uuid   uuid.UUID
	Object map[string]Value
	Array  []Value
	Start  Bound
	End    Bound
}

func KeyInt(i int64) RecordIdKey    { return RecordIdKey{Kind: RecordIdKeyInt, Int: i} }
func KeyString(s string) RecordIdKey { return RecordIdKey{Kind: RecordIdKeyString, Str: s} }
func KeyUuid(u uuid.UUID) RecordIdKey { return RecordIdKey{Kind: RecordIdKeyUuid, Uuid: u} }
func KeyObject(o map[string]Value) RecordIdKey {
	return RecordIdKey{Kind: RecordIdKeyObject, Object: o}
}
func KeyArray(a []Value) RecordIdKey { return RecordIdKey{Kind: RecordIdKeyArray, Array: a} }
func KeyRange(start, end Bound) RecordIdKey {
	return RecordIdKey{Kind: RecordIdKeyRange, Start: start, End: end}
}

// RecordId ("Thing") identifies a record by table name plus key
// (§3: "Thing — a RecordId (TableName + RecordIdKey)").
type RecordId struct {
	Table string
	Key   RecordIdKey
}

func NewRecordId(table string, key RecordIdKey) RecordId {
	return RecordId{Table: table, Key: key}
}

// RecordIdKeyEqual reports deep equality of two RecordIdKey values.
func RecordIdKeyEqual(a, b RecordIdKey) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case RecordIdKeyInt:
		return a.Int == b.Int
	case RecordIdKeyString:
		return a.Str == b.Str
	case RecordIdKeyUuid:
		return a.Uuid == b.Uuid
	case RecordIdKeyObject:
		if len(a.Object) != len(b.Object) {
			return false
		}
		for k, av := range a.Object {
			bv, ok := b.Object[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case RecordIdKeyArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !Equal(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	case RecordIdKeyRange:
		return boundEqual(a.Start, b.Start) && boundEqual(a.End, b.End)
	default:
		return false
	}
}

func boundEqual(a, b Bound) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == BoundUnbounded {
		return true
	}
	if (a.Key == nil) != (b.Key == nil) {
		return false
	}
	if a.Key == nil {
		return true
	}
	return RecordIdKeyEqual(*a.Key, *b.Key)
}

// RecordIdEqual reports equality of two RecordId values (table and key
// must both match; used by the §3 "canonical RecordId" invariant).
func RecordIdEqual(a, b RecordId) bool {
	return a.Table == b.Table && RecordIdKeyEqual(a.Key, b.Key)
}

// RecordIdKeyCompare orders RecordIdKey values, first by Kind then by
// payload; RecordIdCompare uses it for the key part of a RecordId.
func RecordIdKeyCompare(a, b RecordIdKey) int {
	if a.Kind != b.Kind {
		return intCompare(int(a.Kind), int(b.Kind))
	}
	switch a.Kind {
	case RecordIdKeyInt:
		return intCompare64(a.Int, b.Int)
	case RecordIdKeyString:
		return bytes.Compare([]byte(a.Str), []byte(b.Str))
	case RecordIdKeyUuid:
		return bytes.Compare(a.Uuid[:], b.Uuid[:])
	case RecordIdKeyObject:
		return intCompare(len(a.Object), len(b.Object))
	case RecordIdKeyArray:
		for i := 0; i < len(a.Array) && i < len(b.Array); i++ {
			if c := Compare(a.Array[i], b.Array[i]); c != 0 {
				return c
			}
		}
		return intCompare(len(a.Array), len(b.Array))
	case RecordIdKeyRange:
		return 0
	default:
		return 0
	}
}

func intCompare64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// RecordIdCompare orders RecordId values by table then key, the order
// a Range iterable scans records in.
func RecordIdCompare(a, b RecordId) int {
	if c := bytes.Compare([]byte(a.Table), []byte(b.Table)); c != 0 {
		return c
	}
	return RecordIdKeyCompare(a.Key, b.Key)
}
