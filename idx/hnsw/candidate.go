// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package hnsw

import "container/heap"

// candidate is one (distance, element) pair visited during a beam
// search, the unit both priority queues below order on.
type candidate struct {
	id   uint64
	dist float64
}

// nearHeap is a min-heap on distance: the exploration frontier of a
// beam search pops the closest unvisited candidate first.
type nearHeap []candidate

func (h nearHeap) Len() int            { return len(h) }
func (h nearHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h nearHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nearHeap) Push(x any)         { *h = append(*h, x.(candidate)) }
func (h *nearHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// farHeap is a max-heap on distance: the accepted result set W of a
// beam search (bounded to ef) evicts its furthest member in O(log ef)
// when a closer candidate is found, the same bounded-top-K technique
// as dbs.boundedHeap.
type farHeap []candidate

func (h farHeap) Len() int            { return len(h) }
func (h farHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h farHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *farHeap) Push(x any)         { *h = append(*h, x.(candidate)) }
func (h *farHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

func (h farHeap) sortedAscending() []candidate {
	out := append([]candidate(nil), h...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].dist < out[j-1].dist; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// ensure both heap types satisfy heap.Interface at compile time.
var (
	_ heap.Interface = (*nearHeap)(nil)
	_ heap.Interface = (*farHeap)(nil)
)
