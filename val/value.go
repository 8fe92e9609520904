// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package val defines the recursive, closed Value sum type every
// record and query result is built from (spec §3), plus RecordId/Thing
// and the ResolverValue erased-payload variant used by dbs to avoid
// type assertions on opaque values (see DESIGN.md re-architecture
// notes). Numeric comparison and encoding are delegated to numcodec so
// Int/Float/Decimal compare and order identically everywhere.
package val

import (
	"bytes"
	"time"

	"github.com/google/uuid"

	"github.com/coredb-io/kernel/numcodec"
)

// Kind is the closed tag of the Value sum type.
type Kind int

const (
	KindNone Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindBytes
	KindDatetime
	KindDuration
	KindUuid
	KindArray
	KindObject
	KindGeometry
	KindThing
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindDatetime:
		return "datetime"
	case KindDuration:
		return "duration"
	case KindUuid:
		return "uuid"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindGeometry:
		return "geometry"
	case KindThing:
		return "thing"
	default:
		return "unknown"
	}
}

// Geometry is a minimal WKT-backed geometry value. Spatial predicate
// evaluation is out of scope (§1 non-goals: query language surface);
// Value only needs to carry, compare and encode the payload.
type Geometry struct {
	WKT string
}

// Value is the recursive, closed sum type every record field, query
// result and index key payload is built from.
type Value struct {
	Kind     Kind
	Bool     bool
	Number   numcodec.Number
	Str      string
	Bytes    []byte
	Datetime time.Time
	Duration time.Duration
	Uuid     uuid.UUID
	Array    []Value
	Object   map[string]Value
	Geometry Geometry
	Thing    RecordId
}

func None() Value { return Value{Kind: KindNone} }
func Null() Value { return Value{Kind: KindNull} }

func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func Int(i int64) Value     { return Value{Kind: KindNumber, Number: numcodec.FromInt(i)} }
func Float(f float64) Value { return Value{Kind: KindNumber, Number: numcodec.FromFloat(f)} }
func Num(n numcodec.Number) Value { return Value{Kind: KindNumber, Number: n} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Raw(b []byte) Value    { return Value{Kind: KindBytes, Bytes: b} }

func Datetime(t time.Time) Value        { return Value{Kind: KindDatetime, Datetime: t} }
func Duration(d time.Duration) Value    { return Value{Kind: KindDuration, Duration: d} }
func Uid(u uuid.UUID) Value             { return Value{Kind: KindUuid, Uuid: u} }
func Arr(vs []Value) Value              { return Value{Kind: KindArray, Array: vs} }
func Obj(m map[string]Value) Value      { return Value{Kind: KindObject, Object: m} }
func Geo(g Geometry) Value              { return Value{Kind: KindGeometry, Geometry: g} }
func ThingVal(r RecordId) Value         { return Value{Kind: KindThing, Thing: r} }

// IsNone reports the absence of a value, distinct from KindNull's
// explicit "no value" (§3: None vs. Null both exist).
func (v Value) IsNone() bool { return v.Kind == KindNone }

// ID returns the canonical RecordId a Record's Value stores at field
// "id" (§3 invariant: reads observe it identical to the storage key).
// Object must be present and carry a KindThing entry at "id".
func (v Value) ID() (RecordId, bool) {
	if v.Kind != KindObject {
		return RecordId{}, false
	}
	id, ok := v.Object["id"]
	if !ok || id.Kind != KindThing {
		return RecordId{}, false
	}
	return id.Thing, true
}

// WithID returns a copy of v (which must be KindObject) with field
// "id" set to the canonical RecordId, enforcing the §3 invariant that
// a Record's own id field always matches its storage key.
func (v Value) WithID(id RecordId) Value {
	obj := make(map[string]Value, len(v.Object)+1)
	for k, val := range v.Object {
		obj[k] = val
	}
	obj["id"] = ThingVal(id)
	return Value{Kind: KindObject, Object: obj}
}

// Equal reports deep value equality. Numeric equality crosses
// Int/Float/Decimal variants per §3 ("Numeric equality across variants
// yields identical bytes under NumberCodec").
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNone, KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindNumber:
		return numcodec.Equal(a.Number, b.Number)
	case KindString:
		return a.Str == b.Str
	case KindBytes:
		return bytes.Equal(a.Bytes, b.Bytes)
	case KindDatetime:
		return a.Datetime.Equal(b.Datetime)
	case KindDuration:
		return a.Duration == b.Duration
	case KindUuid:
		return a.Uuid == b.Uuid
	case KindArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !Equal(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	case KindObject:
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
	case KindGeometry:
		return a.Geometry.WKT == b.Geometry.WKT
	case KindThing:
		return RecordIdEqual(a.Thing, b.Thing)
	default:
		return false
	}
}

// rank fixes a total order across Kinds for cross-kind comparisons
// (used by dbs ORDER BY when a field's values aren't homogeneously
// typed), ordering roughly least- to most-structured.
func (k Kind) rank() int {
	switch k {
	case KindNone:
		return 0
	case KindNull:
		return 1
	case KindBool:
		return 2
	case KindNumber:
		return 3
	case KindString:
		return 4
	case KindDuration:
		return 5
	case KindDatetime:
		return 6
	case KindUuid:
		return 7
	case KindBytes:
		return 8
	case KindGeometry:
		return 9
	case KindThing:
		return 10
	case KindArray:
		return 11
	case KindObject:
		return 12
	default:
		return 99
	}
}

// Compare returns -1/0/1 comparing a and b, used by the bounded
// priority queue ResultCollector in dbs. Values of differing Kind
// compare by Kind.rank(); structural Kinds (Array/Object) compare
// element-wise / by size as a tie-break, not a full deep order.
func Compare(a, b Value) int {
	if a.Kind != b.Kind {
		ra, rb := a.Kind.rank(), b.Kind.rank()
		switch {
		case ra < rb:
			return -1
		case ra > rb:
			return 1
		default:
			return 0
		}
	}
	switch a.Kind {
	case KindNone, KindNull:
		return 0
	case KindBool:
		return boolCompare(a.Bool, b.Bool)
	case KindNumber:
		switch {
		case numcodec.Less(a.Number, b.Number):
			return -1
		case numcodec.Less(b.Number, a.Number):
			return 1
		default:
			return 0
		}
	case KindString:
		return bytes.Compare([]byte(a.Str), []byte(b.Str))
	case KindBytes:
		return bytes.Compare(a.Bytes, b.Bytes)
	case KindDatetime:
		switch {
		case a.Datetime.Before(b.Datetime):
			return -1
		case a.Datetime.After(b.Datetime):
			return 1
		default:
			return 0
		}
	case KindDuration:
		switch {
		case a.Duration < b.Duration:
			return -1
		case a.Duration > b.Duration:
			return 1
		default:
			return 0
		}
	case KindUuid:
		return bytes.Compare(a.Uuid[:], b.Uuid[:])
	case KindArray:
		for i := 0; i < len(a.Array) && i < len(b.Array); i++ {
			if c := Compare(a.Array[i], b.Array[i]); c != 0 {
				return c
			}
		}
		return intCompare(len(a.Array), len(b.Array))
	case KindObject:
		return intCompare(len(a.Object), len(b.Object))
	case KindGeometry:
		return bytes.Compare([]byte(a.Geometry.WKT), []byte(b.Geometry.WKT))
	case KindThing:
		return RecordIdCompare(a.Thing, b.Thing)
	default:
		return 0
	}
}

func boolCompare(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func intCompare(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
