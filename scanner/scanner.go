// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package scanner implements the four-state async pagination pipeline
// of spec §4.5 over kv.Tx.Scan: Begin schedules the first batch,
// Pending resolves it, Ready drains queued pairs one at a time and
// advances the cursor by appending 0x00 to the last key once drained,
// Complete is terminal. The cursor-advance rule guarantees the
// half-open range is covered exactly once, in ascending order.
//
// Grounded on fenghaojiang-erigon-lib/kv/kv_interface.go's
// RangeAscend(table, from, to, limit) contract, turned into an
// explicit state machine since §4.5 specifies observable states
// rather than a callback-based walker.
package scanner

import (
	"bytes"
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/coredb-io/kernel/kv"
	"github.com/coredb-io/kernel/reqctx"
)

// MaxBatch is the fixed ceiling on pairs fetched per underlying scan
// (§4.5: "batch capped at a fixed ceiling (<=1000)").
const MaxBatch = 1000

type state int

const (
	stateBegin state = iota
	statePending
	stateReady
	stateComplete
)

// Scanner paginates Tx.Scan(lo, hi, batch) into a pull-based stream.
type Scanner struct {
	tx    kv.Tx
	rc    *reqctx.Context
	lo    []byte
	hi    []byte
	batch int

	state state
	queue []kv.Pair
	pos   int
	err   error

	readAhead bool
	group     *errgroup.Group
	next      chan scanResult
}

type scanResult struct {
	pairs []kv.Pair
	err   error
}

// Options configures a Scanner.
type Options struct {
	Batch     int  // 0 defaults to MaxBatch
	ReadAhead bool // prefetch the next batch while the caller drains the current one
}

// New creates a Scanner over the half-open range [lo, hi), optionally
// checking rc for cancellation at batch boundaries (§4.5:
// "Cancellation: the Scanner checks its owning Context").
func New(tx kv.Tx, rc *reqctx.Context, lo, hi []byte, opts Options) *Scanner {
	batch := opts.Batch
	if batch <= 0 || batch > MaxBatch {
		batch = MaxBatch
	}
	return &Scanner{
		tx:        tx,
		rc:        rc,
		lo:        append([]byte(nil), lo...),
		hi:        append([]byte(nil), hi...),
		batch:     batch,
		state:     stateBegin,
		readAhead: opts.ReadAhead,
	}
}

// Next advances the state machine and returns the next (k,v) pair, or
// ok=false once the range is exhausted (err holds any scan failure).
func (s *Scanner) Next(ctx context.Context) (k, v []byte, ok bool, err error) {
	for {
		switch s.state {
		case stateComplete:
			return nil, nil, false, s.err

		case stateBegin:
			if s.rc != nil && s.rc.Done(false) != reqctx.None {
				s.state = stateComplete
				continue
			}
			s.state = statePending
			if s.readAhead {
				s.scheduleReadAhead(ctx)
			}
			continue

		case statePending:
			pairs, perr := s.resolveScan(ctx)
			if perr != nil {
				s.err = perr
				s.state = stateComplete
				continue
			}
			s.queue = pairs
			s.pos = 0
			if len(pairs) == 0 {
				s.state = stateComplete
				continue
			}
			s.state = stateReady
			if s.readAhead {
				last := pairs[len(pairs)-1].K
				s.lo = append(append([]byte(nil), last...), 0x00)
				s.scheduleReadAhead(ctx)
			}
			continue

		case stateReady:
			if s.rc != nil && s.rc.Done(false) != reqctx.None {
				s.state = stateComplete
				continue
			}
			if s.pos < len(s.queue) {
				p := s.queue[s.pos]
				s.pos++
				return p.K, p.V, true, nil
			}
			last := s.queue[len(s.queue)-1].K
			s.lo = append(append([]byte(nil), last...), 0x00)
			s.state = statePending
			continue
		}
	}
}

// resolveScan resolves the in-flight scan, waiting on the read-ahead
// channel if one was scheduled, else performing the scan synchronously
// (the cooperative single-threaded model of §5 makes the two
// equivalent in observable behavior; read-ahead only overlaps the
// fetch with the caller's processing of the previous Ready batch).
func (s *Scanner) resolveScan(ctx context.Context) ([]kv.Pair, error) {
	if s.readAhead && s.next != nil {
		res := <-s.next
		s.next = nil
		return res.pairs, res.err
	}
	if bytes.Compare(s.lo, s.hi) >= 0 {
		return nil, nil
	}
	return s.tx.Scan(ctx, s.lo, s.hi, s.batch)
}

func (s *Scanner) scheduleReadAhead(ctx context.Context) {
	if bytes.Compare(s.lo, s.hi) >= 0 {
		return
	}
	lo, hi, batch := append([]byte(nil), s.lo...), s.hi, s.batch
	g, gctx := errgroup.WithContext(ctx)
	s.group = g
	ch := make(chan scanResult, 1)
	s.next = ch
	g.Go(func() error {
		pairs, err := s.tx.Scan(gctx, lo, hi, batch)
		ch <- scanResult{pairs: pairs, err: err}
		return err
	})
}
