// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package reqctx

import (
	"sync"
	"sync/atomic"

	"github.com/coredb-io/kernel/val"
)

// Action is a live-query change kind (§6).
type Action int

const (
	Create Action = iota
	Update
	Delete
)

func (a Action) String() string {
	switch a {
	case Create:
		return "CREATE"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Notification is the payload delivered to a live-query subscriber
// (§6: "{ subscription_id, action, result }").
type Notification struct {
	SubscriptionID string
	Action         Action
	Result         val.Value
}

// NotifySink is a single-writer, multi-reader live-query broker
// (§5). Back-pressure policy resolves the Open Question in DESIGN.md:
// a bounded channel that drops the oldest queued notification rather
// than blocking the committing transaction, since blocking a commit on
// a slow subscriber would violate the "effects observed in program
// order" guarantee for the writer's own next statement.
type NotifySink struct {
	mu      sync.Mutex
	ch      chan Notification
	dropped atomic.Uint64
}

// NewNotifySink creates a sink with the given bounded capacity.
func NewNotifySink(capacity int) *NotifySink {
	if capacity <= 0 {
		capacity = 1
	}
	return &NotifySink{ch: make(chan Notification, capacity)}
}

// Publish enqueues n, dropping the oldest queued notification (and
// incrementing Dropped) if the sink is full rather than blocking.
func (s *NotifySink) Publish(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		select {
		case s.ch <- n:
			return
		default:
			select {
			case <-s.ch:
				s.dropped.Add(1)
			default:
			}
		}
	}
}

// C exposes the receive side for subscribers.
func (s *NotifySink) C() <-chan Notification { return s.ch }

// Dropped reports how many notifications have been evicted due to
// back-pressure since the sink was created.
func (s *NotifySink) Dropped() uint64 { return s.dropped.Load() }

// Close closes the underlying channel; no further Publish calls are
// permitted afterwards.
func (s *NotifySink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.ch)
}
