// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package reqctx implements the frozen Context tree of spec §4.6: a
// tree of immutable nodes carrying lexically scoped variables,
// deadline, cancellation, slow-log config, a capability set, and the
// owning transaction handle. Named reqctx (not ctx) to avoid shadowing
// the standard library package at import sites, the way erigon avoids
// short colliding names in core/state.
package reqctx

import (
	"sync/atomic"
	"time"

	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/kv"
	"github.com/coredb-io/kernel/val"
)

// reservedNames can never be set by user code (§6).
var reservedNames = map[string]bool{
	"access":  true,
	"auth":    true,
	"token":   true,
	"session": true,
}

// Context is one node of the context tree. Construct the root with New
// and derive children with Child. Set adds variables to a node at any
// time; Freeze/Unfreeze only count shared handles and do not restrict
// mutation.
type Context struct {
	parent   *Context
	isolated bool

	values map[string]val.Value

	hasDeadline bool
	deadline    time.Time

	cancelled *atomic.Bool

	slowLogThreshold time.Duration
	capabilities     map[string]bool

	tx kv.RwTx

	memoryLimitBytes uint64
	memoryUsed       *atomic.Uint64

	notify *NotifySink

	refCount *atomic.Int32
}

// Options configures a root Context at construction.
type Options struct {
	Deadline         time.Time
	HasDeadline      bool
	SlowLogThreshold time.Duration
	Capabilities     map[string]bool
	MemoryLimitBytes uint64
	Tx               kv.RwTx
	Notify           *NotifySink
}

// New constructs a root Context.
func New(opts Options) *Context {
	caps := opts.Capabilities
	if caps == nil {
		caps = map[string]bool{}
	}
	return &Context{
		values:           map[string]val.Value{},
		hasDeadline:      opts.HasDeadline,
		deadline:         opts.Deadline,
		cancelled:        new(atomic.Bool),
		slowLogThreshold: opts.SlowLogThreshold,
		capabilities:     caps,
		tx:               opts.Tx,
		memoryLimitBytes: opts.MemoryLimitBytes,
		memoryUsed:       new(atomic.Uint64),
		notify:           opts.Notify,
		refCount:         new(atomic.Int32),
	}
}

// Child derives a child Context that shared-borrows the parent for
// lookup (§3 Ownership: "a child Context shared-borrows its parent").
// A child's deadline may only tighten, never loosen, the parent's
// (§5); passing hasDeadline=false keeps the parent's.
func (c *Context) Child(isolated bool, deadline time.Time, hasDeadline bool) (*Context, error) {
	if hasDeadline && c.hasDeadline && deadline.After(c.deadline) {
		return nil, errs.New(errs.Internal, "child deadline %s cannot loosen parent deadline %s", deadline, c.deadline)
	}
	effectiveDeadline := c.deadline
	effectiveHasDeadline := c.hasDeadline
	if hasDeadline {
		effectiveDeadline = deadline
		effectiveHasDeadline = true
	}
	return &Context{
		parent:           c,
		isolated:         isolated,
		values:           map[string]val.Value{},
		hasDeadline:      effectiveHasDeadline,
		deadline:         effectiveDeadline,
		cancelled:        c.cancelled,
		slowLogThreshold: c.slowLogThreshold,
		capabilities:     c.capabilities,
		tx:               c.tx,
		memoryLimitBytes: c.memoryLimitBytes,
		memoryUsed:       c.memoryUsed,
		notify:           c.notify,
		refCount:         new(atomic.Int32),
	}, nil
}

// Set stores a lexically scoped variable. Reserved names are refused.
func (c *Context) Set(name string, v val.Value) error {
	if reservedNames[name] {
		return errs.New(errs.PermissionDenied, "%q is a reserved variable name", name)
	}
	c.values[name] = v
	return nil
}

// Get resolves name in this node, then in ancestors (unless isolated),
// matching the lexical-scoping rule of §4.6.
func (c *Context) Get(name string) (val.Value, bool) {
	if v, ok := c.values[name]; ok {
		return v, true
	}
	if c.isolated || c.parent == nil {
		return val.Value{}, false
	}
	return c.parent.Get(name)
}

// Tx returns the transaction handle this Context (or its nearest
// ancestor) carries.
func (c *Context) Tx() kv.RwTx { return c.tx }

// Notify returns the notification sink installed on the root Context
// (children inherit it), or nil if none was installed.
func (c *Context) Notify() *NotifySink { return c.notify }

// SlowLogThreshold returns the configured slow-statement logging
// threshold.
func (c *Context) SlowLogThreshold() time.Duration { return c.slowLogThreshold }

// HasCapability reports whether the capability set grants name.
func (c *Context) HasCapability(name string) bool { return c.capabilities[name] }

// AddMemoryUsed accounts n additional bytes against the shared memory
// ceiling, used by collectors to detect QueryBeyondMemoryThreshold.
func (c *Context) AddMemoryUsed(n uint64) uint64 {
	return c.memoryUsed.Add(n)
}

// Cancel sets the shared cancellation flag; visible to every node in
// the tree immediately (§5: "a single atomic bool per Context").
func (c *Context) Cancel() { c.cancelled.Store(true) }
