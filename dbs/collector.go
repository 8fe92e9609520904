// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package dbs

import (
	"container/heap"
	"math/rand"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/coredb-io/kernel/keycodec"
	"github.com/coredb-io/kernel/val"
)

// BoundedSortCeiling is the §4.7 step-5 threshold: when start+limit is
// at or below this, ORDER BY is satisfied with a bounded K-element
// priority queue instead of a full in-memory sort.
const BoundedSortCeiling = 10_000

// CollectorKind is the closed ResultCollector sum type.
type CollectorKind int

const (
	CollectorMemory CollectorKind = iota
	CollectorMemoryOrdered
	CollectorMemoryOrderedLimit
	CollectorMemoryRandom
	CollectorGroups
)

// ResultCollector accumulates rows produced by Iterate and applies
// ORDER BY / GROUP BY / START / LIMIT once iteration completes (§4.7
// step 5). Exactly one of the Kind-specific accumulation paths is
// active for a given collector.
type ResultCollector struct {
	kind  CollectorKind
	order []OrderField

	rows []val.Value

	limitK int
	heap   *boundedHeap

	rnd  *rand.Rand
	seen int

	groups map[string][]val.Value
	group  []string
}

func NewMemoryCollector() *ResultCollector {
	return &ResultCollector{kind: CollectorMemory}
}

func NewMemoryOrderedCollector(order []OrderField) *ResultCollector {
	return &ResultCollector{kind: CollectorMemoryOrdered, order: order}
}

// NewMemoryOrderedLimitCollector bounds retained rows to the K = start
// + limit highest-priority rows under order, using a max-heap keyed by
// the *worst* admitted row so a better candidate can evict it in
// O(log K) instead of keeping every row seen.
func NewMemoryOrderedLimitCollector(order []OrderField, k int) *ResultCollector {
	return &ResultCollector{
		kind:   CollectorMemoryOrderedLimit,
		order:  order,
		limitK: k,
		heap:   newBoundedHeap(order, k),
	}
}

func NewMemoryRandomCollector(rnd *rand.Rand) *ResultCollector {
	return &ResultCollector{kind: CollectorMemoryRandom, rnd: rnd}
}

func NewGroupsCollector(group []string) *ResultCollector {
	return &ResultCollector{kind: CollectorGroups, group: group, groups: map[string][]val.Value{}}
}

func (c *ResultCollector) Push(row val.Value) {
	switch c.kind {
	case CollectorMemory, CollectorMemoryOrdered:
		c.rows = append(c.rows, row)
	case CollectorMemoryOrderedLimit:
		heap.Push(c.heap, row)
		if c.heap.Len() > c.limitK {
			heap.Pop(c.heap)
		}
	case CollectorMemoryRandom:
		c.pushReservoir(row)
	case CollectorGroups:
		key := groupKey(c.group, row)
		c.groups[key] = append(c.groups[key], row)
	}
}

// pushReservoir implements reservoir sampling (Algorithm R) so RANDOM
// ORDER BY doesn't require buffering the whole table to pick one row
// with uniform probability.
func (c *ResultCollector) pushReservoir(row val.Value) {
	const reservoirSize = 1
	c.seen++
	if len(c.rows) < reservoirSize {
		c.rows = append(c.rows, row)
		return
	}
	j := c.rnd.Intn(c.seen)
	if j < reservoirSize {
		c.rows[j] = row
	}
}

// Finish applies START/LIMIT and returns the final row set. GROUP BY
// output is one row per distinct group key (the first row seen for
// that key), ordered by the sorted encoded group keys.
func (c *ResultCollector) Finish(start int, hasStart bool, limit int, hasLimit bool) []val.Value {
	var out []val.Value
	switch c.kind {
	case CollectorMemory, CollectorMemoryRandom:
		out = c.rows
	case CollectorMemoryOrdered:
		out = slices.Clone(c.rows)
		slices.SortFunc(out, func(a, b val.Value) int { return compareByOrder(a, b, c.order) })
	case CollectorMemoryOrderedLimit:
		out = c.heap.sorted()
	case CollectorGroups:
		keys := maps.Keys(c.groups)
		slices.Sort(keys)
		out = make([]val.Value, 0, len(keys))
		for _, k := range keys {
			rows := c.groups[k]
			out = append(out, rows[0])
		}
	}

	if hasStart && start > 0 {
		if start >= len(out) {
			return nil
		}
		out = out[start:]
	}
	if hasLimit && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// groupKey serializes a row's GROUP BY field values with keycodec's
// order-preserving value encoding, reused here for its bijective
// self-delimiting property; Finish also sorts groups by these bytes.
func groupKey(fields []string, row val.Value) string {
	var buf []byte
	for _, f := range fields {
		v := val.Null()
		if row.Kind == val.KindObject {
			if fv, ok := row.Object[f]; ok {
				v = fv
			}
		}
		buf = append(buf, keycodec.EncodeValue(v)...)
	}
	return string(buf)
}

// compareByOrder returns <0, 0, >0 as a sorts before, equal to, or
// after b under order, the comparator shape slices.SortFunc expects.
func compareByOrder(a, b val.Value, order []OrderField) int {
	for _, o := range order {
		av, bv := fieldOf(a, o.Field), fieldOf(b, o.Field)
		c := val.Compare(av, bv)
		if c == 0 {
			continue
		}
		if o.Desc {
			return -c
		}
		return c
	}
	return 0
}

func lessByOrder(a, b val.Value, order []OrderField) bool {
	return compareByOrder(a, b, order) < 0
}

func fieldOf(v val.Value, field string) val.Value {
	if field == "id" {
		return v
	}
	if v.Kind != val.KindObject {
		return val.Null()
	}
	if fv, ok := v.Object[field]; ok {
		return fv
	}
	return val.Null()
}

// boundedHeap is a max-heap over the *worst* row admitted so far under
// order, letting NewMemoryOrderedLimitCollector discard the current
// worst in O(log K) when a better row arrives.
type boundedHeap struct {
	rows  []val.Value
	order []OrderField
}

func newBoundedHeap(order []OrderField, k int) *boundedHeap {
	return &boundedHeap{rows: make([]val.Value, 0, k), order: order}
}

func (h *boundedHeap) Len() int { return len(h.rows) }

// Less defines a max-heap on "worseness": the row that would sort last
// under order is the heap's root, so popping it evicts the worst row.
func (h *boundedHeap) Less(i, j int) bool {
	return lessByOrder(h.rows[j], h.rows[i], h.order)
}

func (h *boundedHeap) Swap(i, j int) { h.rows[i], h.rows[j] = h.rows[j], h.rows[i] }

func (h *boundedHeap) Push(x any) { h.rows = append(h.rows, x.(val.Value)) }

func (h *boundedHeap) Pop() any {
	n := len(h.rows)
	v := h.rows[n-1]
	h.rows = h.rows[:n-1]
	return v
}

func (h *boundedHeap) sorted() []val.Value {
	out := slices.Clone(h.rows)
	slices.SortFunc(out, func(a, b val.Value) int { return compareByOrder(a, b, h.order) })
	return out
}
