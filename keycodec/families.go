// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package keycodec implements the bijective, order-preserving key
// encoding of spec §4.2: every catalog and data key is a sequence of
// typed segments (root byte / namespace_id / database_id / family_tag
// / ...), each family gets a distinct family_tag so keys never
// collide across families, and every family exposes a Prefix/Suffix
// pair that brackets exactly the keys of that family under a given
// set of parent ids.
//
// The family-tag-per-kind layout generalizes
// erigon-lib/kv/tables.go's one-tag-per-table convention: where erigon
// gives each table its own physically separate MDBX sub-database (so
// tags never need to share a keyspace), everything here shares one
// ordered byte-map, so the tag is load-bearing for correctness, not
// just readability.
package keycodec

// Level identifies which rung of the catalog tree a definition family
// key belongs to (§3: Root -> Namespace -> Database -> Table).
type Level byte

const (
	LevelRoot Level = iota
	LevelNamespace
	LevelDatabase
	LevelTable
)

// parentIDCount returns how many BE uint32 parent-id segments precede
// the entity's own name/id segment at this level.
func (l Level) parentIDCount() int {
	switch l {
	case LevelRoot:
		return 0
	case LevelNamespace:
		return 1
	case LevelDatabase:
		return 2
	case LevelTable:
		return 3
	default:
		return 0
	}
}

// EntityKind is the closed set of definition kinds a catalog level may
// hold (§3's per-level entity lists).
type EntityKind byte

const (
	EntityUser EntityKind = iota
	EntityAccess
	EntityNamespace
	EntityDatabase
	EntityAnalyzer
	EntityFunction
	EntityParam
	EntityModel
	EntityTable
	EntityEvent
	EntityField
	EntityIndex
	EntityView
	EntityLiveQuery
)

// Top-level family tags. defByName and defByID are shared by every
// (Level, EntityKind) pair; row/HNSW families get their own tag
// because their segment shape differs from the generic definition
// layout.
const (
	famDefByName byte = 0x01
	famDefByID   byte = 0x02
	famSeq       byte = 0x03

	famRow         byte = 0x10
	famHnswState   byte = 0x20
	famHnswLayer   byte = 0x21
	famHnswVector  byte = 0x22
	famHnswPending byte = 0x23
)
