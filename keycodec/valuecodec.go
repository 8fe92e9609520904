// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package keycodec

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/numcodec"
	"github.com/coredb-io/kernel/val"
)

// EncodeValue is a generic, self-delimiting encoding of val.Value, used
// both by Object/Array RecordIdKey variants and by txstore to persist
// record payloads as row values. It is bijective but not
// order-preserving across differing shapes, which §4.2 only requires
// of index-key families.
func EncodeValue(v val.Value) []byte {
	buf := []byte{byte(v.Kind)}
	switch v.Kind {
	case val.KindNone, val.KindNull:
		return buf
	case val.KindBool:
		if v.Bool {
			return append(buf, 1)
		}
		return append(buf, 0)
	case val.KindNumber:
		return appendLenPrefixed(buf, numcodec.Encode(v.Number))
	case val.KindString:
		return appendLenPrefixed(buf, []byte(v.Str))
	case val.KindBytes:
		return appendLenPrefixed(buf, v.Bytes)
	case val.KindDatetime:
		return putUint64(buf, uint64(v.Datetime.UnixNano()))
	case val.KindDuration:
		return putUint64(buf, uint64(v.Duration))
	case val.KindUuid:
		return append(buf, v.Uuid[:]...)
	case val.KindArray:
		buf = putUint32(buf, uint32(len(v.Array)))
		for _, e := range v.Array {
			buf = append(buf, EncodeValue(e)...)
		}
		return buf
	case val.KindObject:
		buf = putUint32(buf, uint32(len(v.Object)))
		keys := sortedKeys(v.Object)
		for _, k := range keys {
			buf = appendLenPrefixed(buf, []byte(k))
			buf = append(buf, EncodeValue(v.Object[k])...)
		}
		return buf
	case val.KindGeometry:
		return appendLenPrefixed(buf, []byte(v.Geometry.WKT))
	case val.KindThing:
		buf = appendLenPrefixed(buf, []byte(v.Thing.Table))
		enc, err := EncodeRecordIdKey(v.Thing.Key)
		if err != nil {
			// Range-typed Thing keys cannot occur in stored values;
			// fall back to a fixed marker rather than panicking.
			return append(buf, 0xff)
		}
		return appendLenPrefixed(buf, enc)
	default:
		return buf
	}
}

// DecodeValue decodes a single EncodeValue-produced value from the
// front of b, returning the value and the number of bytes consumed.
func DecodeValue(b []byte) (val.Value, int, error) {
	if len(b) < 1 {
		return val.Value{}, 0, errs.New(errs.Internal, "keycodec: DecodeValue: empty input")
	}
	kind := val.Kind(b[0])
	rest := b[1:]
	switch kind {
	case val.KindNone:
		return val.None(), 1, nil
	case val.KindNull:
		return val.Null(), 1, nil
	case val.KindBool:
		if len(rest) < 1 {
			return val.Value{}, 0, errs.New(errs.Internal, "keycodec: DecodeValue: truncated bool")
		}
		return val.Bool(rest[0] != 0), 2, nil
	case val.KindNumber:
		raw, n, err := readLenPrefixed(rest)
		if err != nil {
			return val.Value{}, 0, err
		}
		num, err := numcodec.Decode(raw)
		if err != nil {
			return val.Value{}, 0, err
		}
		return val.Num(num), 1 + n, nil
	case val.KindString:
		raw, n, err := readLenPrefixed(rest)
		if err != nil {
			return val.Value{}, 0, err
		}
		return val.String(string(raw)), 1 + n, nil
	case val.KindBytes:
		raw, n, err := readLenPrefixed(rest)
		if err != nil {
			return val.Value{}, 0, err
		}
		return val.Raw(append([]byte(nil), raw...)), 1 + n, nil
	case val.KindDatetime:
		nanos, n, err := readUint64(rest)
		if err != nil {
			return val.Value{}, 0, err
		}
		return val.Datetime(time.Unix(0, int64(nanos)).UTC()), 1 + n, nil
	case val.KindDuration:
		d, n, err := readUint64(rest)
		if err != nil {
			return val.Value{}, 0, err
		}
		return val.Duration(time.Duration(d)), 1 + n, nil
	case val.KindUuid:
		if len(rest) < 16 {
			return val.Value{}, 0, errs.New(errs.Internal, "keycodec: DecodeValue: truncated uuid")
		}
		var u uuid.UUID
		copy(u[:], rest[:16])
		return val.Uid(u), 17, nil
	case val.KindArray:
		n, count, err := readUint32(rest)
		if err != nil {
			return val.Value{}, 0, err
		}
		off := n
		items := make([]val.Value, 0, count)
		for i := uint32(0); i < count; i++ {
			v, consumed, err := DecodeValue(rest[off:])
			if err != nil {
				return val.Value{}, 0, err
			}
			items = append(items, v)
			off += consumed
		}
		return val.Arr(items), 1 + off, nil
	case val.KindObject:
		n, count, err := readUint32(rest)
		if err != nil {
			return val.Value{}, 0, err
		}
		off := n
		obj := make(map[string]val.Value, count)
		for i := uint32(0); i < count; i++ {
			key, consumed, err := readLenPrefixed(rest[off:])
			if err != nil {
				return val.Value{}, 0, err
			}
			off += consumed
			v, consumed, err := DecodeValue(rest[off:])
			if err != nil {
				return val.Value{}, 0, err
			}
			obj[string(key)] = v
			off += consumed
		}
		return val.Obj(obj), 1 + off, nil
	case val.KindGeometry:
		raw, n, err := readLenPrefixed(rest)
		if err != nil {
			return val.Value{}, 0, err
		}
		return val.Geo(val.Geometry{WKT: string(raw)}), 1 + n, nil
	case val.KindThing:
		table, n, err := readLenPrefixed(rest)
		if err != nil {
			return val.Value{}, 0, err
		}
		off := n
		encKey, consumed, err := readLenPrefixed(rest[off:])
		if err != nil {
			return val.Value{}, 0, err
		}
		off += consumed
		key, err := DecodeRecordIdKey(encKey)
		if err != nil {
			return val.Value{}, 0, err
		}
		return val.ThingVal(val.NewRecordId(string(table), key)), 1 + off, nil
	default:
		return val.Value{}, 0, errs.New(errs.Internal, "keycodec: DecodeValue: unknown kind %d", kind)
	}
}

func appendLenPrefixed(buf, data []byte) []byte {
	buf = putUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

// readLenPrefixed reads a putUint32-length-prefixed byte string from b,
// returning the payload and the total bytes consumed (4 + len).
func readLenPrefixed(b []byte) (data []byte, consumed int, err error) {
	off, n, err := readUint32(b)
	if err != nil {
		return nil, 0, err
	}
	if len(b) < off+int(n) {
		return nil, 0, errs.New(errs.Internal, "keycodec: readLenPrefixed: truncated payload")
	}
	return b[off : off+int(n)], off + int(n), nil
}

func readUint32(b []byte) (consumed int, v uint32, err error) {
	if len(b) < 4 {
		return 0, 0, errs.New(errs.Internal, "keycodec: readUint32: truncated input")
	}
	return 4, uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func readUint64(b []byte) (v uint64, consumed int, err error) {
	if len(b) < 8 {
		return 0, 0, errs.New(errs.Internal, "keycodec: readUint64: truncated input")
	}
	v = uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
	return v, 8, nil
}

func sortedKeys(m map[string]val.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
