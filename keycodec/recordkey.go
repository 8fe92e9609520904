// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package keycodec

import (
	"github.com/google/uuid"

	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/numcodec"
	"github.com/coredb-io/kernel/val"
)

// RecordIdKey variant tags, the first byte of every encoded key
// segment so decoding never has to guess the variant.
const (
	ridTagInt byte = iota
	ridTagString
	ridTagUuid
	ridTagObject
	ridTagArray
)

// EncodeRecordIdKey encodes a concrete (non-Range) RecordIdKey into
// its row-key segment. Int is delegated to numcodec so numeric thing
// ids sort correctly within a table; String/Uuid are encoded as raw
// bytes since, as the terminal segment of a row key, no further
// segment can collide with them; Object/Array fall back to a generic
// self-delimiting Value encoding (order not guaranteed across
// differently-shaped keys, only bijectivity, which is all §4.2
// requires outside index-key families).
func EncodeRecordIdKey(k val.RecordIdKey) ([]byte, error) {
	switch k.Kind {
	case val.RecordIdKeyInt:
		return append([]byte{ridTagInt}, numcodec.Encode(numcodec.FromInt(k.Int))...), nil
	case val.RecordIdKeyString:
		return append([]byte{ridTagString}, []byte(k.Str)...), nil
	case val.RecordIdKeyUuid:
		return append([]byte{ridTagUuid}, k.Uuid[:]...), nil
	case val.RecordIdKeyObject:
		return append([]byte{ridTagObject}, EncodeValue(val.Obj(k.Object))...), nil
	case val.RecordIdKeyArray:
		return append([]byte{ridTagArray}, EncodeValue(val.Arr(k.Array))...), nil
	default:
		return nil, errs.New(errs.Internal, "keycodec: RecordIdKey.Range has no point encoding")
	}
}

// DecodeRecordIdKey recovers a concrete RecordIdKey from its
// EncodeRecordIdKey output, e.g. a decoded val.Thing payload or the
// key tail of a row key (dbs's keyFromRow).
func DecodeRecordIdKey(b []byte) (val.RecordIdKey, error) {
	if len(b) < 1 {
		return val.RecordIdKey{}, errs.New(errs.Internal, "keycodec: DecodeRecordIdKey: empty input")
	}
	switch b[0] {
	case ridTagInt:
		n, err := numcodec.Decode(b[1:])
		if err != nil {
			return val.RecordIdKey{}, err
		}
		dec, _, _, _ := n.AsDecimal()
		return val.KeyInt(dec.IntPart()), nil
	case ridTagString:
		return val.KeyString(string(b[1:])), nil
	case ridTagUuid:
		if len(b) < 17 {
			return val.RecordIdKey{}, errs.New(errs.Internal, "keycodec: DecodeRecordIdKey: truncated uuid")
		}
		var u uuid.UUID
		copy(u[:], b[1:17])
		return val.KeyUuid(u), nil
	case ridTagObject:
		v, _, err := DecodeValue(b[1:])
		if err != nil {
			return val.RecordIdKey{}, err
		}
		return val.KeyObject(v.Object), nil
	case ridTagArray:
		v, _, err := DecodeValue(b[1:])
		if err != nil {
			return val.RecordIdKey{}, err
		}
		return val.KeyArray(v.Array), nil
	default:
		return val.RecordIdKey{}, errs.New(errs.Internal, "keycodec: DecodeRecordIdKey: unknown tag %d", b[0])
	}
}

// RowKeyBounds builds the [lo, hi) scan bounds for a table range
// iterable (§4.7's Range iterable, §4.5's Scanner range argument),
// given a RecordIdKey.Range's start/end bounds. Unbounded maps to the
// table's own Prefix/Suffix; Included uses the exact encoded key as
// the boundary (hi must then be pushed past it with an extra 0x00,
// since scan ranges are half-open); Excluded is already exclusive as
// the upper bound, or must be pushed past as the lower bound.
func RowKeyBounds(nsID, dbID, tableID uint32, r val.RecordIdKey) (lo, hi []byte, err error) {
	if r.Kind != val.RecordIdKeyRange {
		return nil, nil, errs.New(errs.Internal, "keycodec: RowKeyBounds requires a Range key")
	}
	prefix := RowPrefix(nsID, dbID, tableID)

	lo, err = rowBoundLow(prefix, r.Start)
	if err != nil {
		return nil, nil, err
	}
	hi, err = rowBoundHigh(prefix, r.End)
	if err != nil {
		return nil, nil, err
	}
	return lo, hi, nil
}

func rowBoundLow(prefix []byte, b val.Bound) ([]byte, error) {
	switch b.Kind {
	case val.BoundUnbounded:
		return append([]byte{}, prefix...), nil
	case val.BoundIncluded:
		enc, err := EncodeRecordIdKey(*b.Key)
		if err != nil {
			return nil, err
		}
		return append(append([]byte{}, prefix...), enc...), nil
	case val.BoundExcluded:
		enc, err := EncodeRecordIdKey(*b.Key)
		if err != nil {
			return nil, err
		}
		key := append(append([]byte{}, prefix...), enc...)
		return append(key, 0x00), nil
	default:
		return nil, errBadRange
	}
}

func rowBoundHigh(prefix []byte, b val.Bound) ([]byte, error) {
	switch b.Kind {
	case val.BoundUnbounded:
		return append(append([]byte{}, prefix...), 0xff), nil
	case val.BoundExcluded:
		enc, err := EncodeRecordIdKey(*b.Key)
		if err != nil {
			return nil, err
		}
		return append(append([]byte{}, prefix...), enc...), nil
	case val.BoundIncluded:
		enc, err := EncodeRecordIdKey(*b.Key)
		if err != nil {
			return nil, err
		}
		key := append(append([]byte{}, prefix...), enc...)
		return append(key, 0x00), nil
	default:
		return nil, errBadRange
	}
}

