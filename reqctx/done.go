// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package reqctx

import (
	"runtime"
	"time"
)

// Reason is the outcome of a Done check, in the priority order §4.6
// and §5 fix: cancellation outranks timeout, which outranks memory
// pressure.
type Reason int

const (
	None Reason = iota
	Cancelled
	Timedout
	MemoryThresholdExceeded
)

// Done reports whether this Context should stop iterating. deep=false
// performs only the atomic cancellation-flag probe; deep=true
// additionally checks the deadline and the memory threshold.
func (c *Context) Done(deep bool) Reason {
	if c.cancelled.Load() {
		return Cancelled
	}
	if !deep {
		return None
	}
	if c.hasDeadline && !time.Now().Before(c.deadline) {
		return Timedout
	}
	if c.memoryLimitBytes > 0 && c.memoryUsed.Load() > c.memoryLimitBytes {
		return MemoryThresholdExceeded
	}
	return None
}

// deepCheckCounts are the iteration counts, below the steady-state
// interval, at which IsDone performs a deep check (§4.6: "deep-check
// at counts 1,2,4,8,16,32 then every 64").
var deepCheckCounts = map[uint64]bool{1: true, 2: true, 4: true, 8: true, 16: true, 32: true}

// IsDone wraps Done with the adaptive back-off schedule of §4.6:
// count is incremented on every call (a per-iteration counter owned
// by the caller's loop); every 32nd call yields the scheduler, and a
// deep check runs at the counts above, then every 64 thereafter.
func (c *Context) IsDone(count *uint64) Reason {
	*count++
	n := *count

	if n%32 == 0 {
		runtime.Gosched()
	}

	deep := deepCheckCounts[n] || (n > 32 && n%64 == 0)
	return c.Done(deep)
}

// Freeze increments the shared-handle count and returns c itself for
// use from multiple call sites (DESIGN NOTES' Arc-like
// shared/exclusive handoff); it does not make c read-only.
func (c *Context) Freeze() *Context {
	c.refCount.Add(1)
	return c
}

// Unfreeze releases a shared handle obtained from Freeze. It panics if
// called without a matching Freeze; it performs no other check.
func (c *Context) Unfreeze() {
	if c.refCount.Add(-1) < 0 {
		panic("reqctx: Unfreeze called without a matching Freeze")
	}
}

// RefCount reports the number of outstanding Freeze handles.
func (c *Context) RefCount() int32 { return c.refCount.Load() }
