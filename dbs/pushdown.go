// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package dbs

// Decision is the outcome of the conservative push-down analysis §4.7
// step 3 runs before Iterate. It only ever narrows what gets scanned
// or stops a scan early; it never changes which rows are returned.
type Decision struct {
	// StartSkip lets Iterate skip the first Start candidate rows before
	// they reach processRecord and the collector, instead of having the
	// collector discard them.
	StartSkip bool

	// CancelOnLimit lets Iterate stop pulling from the Iterable once
	// CancelThreshold rows have been produced, instead of draining it
	// fully and relying on the collector to truncate.
	CancelOnLimit   bool
	CancelThreshold int
}

// PushDown implements §4.7 step 3's exact conservative conditions.
//
// start_skip is legal iff there is no GROUP BY, exactly one Target,
// and either (no WHERE and no ORDER BY) or (WHERE is already
// discharged by the chosen iterator and the sole iterator's natural
// order already matches ORDER BY, or there is no ORDER BY).
//
// The cancel threshold is `limit` when start_skip applies (rows before
// Start never reach the collector, so only Limit rows need to survive
// past it), otherwise `start+limit` (rows up to Start still have to be
// produced and discarded by the collector, so the scan must run long
// enough to hand it start+limit candidates).
func PushDown(stmt *Statement) Decision {
	if !stmt.HasLimit {
		return Decision{}
	}

	singleTarget := len(stmt.Targets) == 1
	whereOK := stmt.Filter == nil || stmt.WhereDischarged
	orderOK := !stmt.hasOrderBy() || (singleTarget && stmt.Targets[0].Kind != TargetLookup && orderMatchesIterator(stmt))

	startSkip := stmt.HasStart && !stmt.hasGroupBy() && singleTarget && whereOK && orderOK

	threshold := stmt.Limit
	if !startSkip && stmt.HasStart {
		threshold = stmt.Start + stmt.Limit
	}

	return Decision{
		StartSkip:       startSkip,
		CancelOnLimit:   !stmt.hasGroupBy() && orderOK,
		CancelThreshold: threshold,
	}
}

// orderMatchesIterator reports whether the single target's natural
// iteration order already satisfies ORDER BY, so the collector needs
// no re-sort and an early cancel is safe. A Table/Range scan over the
// primary key naturally yields ascending record-id order; an Index
// iterable's order depends on the index it was built from, and nothing
// on Statement records it, so an index-backed target never matches.
func orderMatchesIterator(stmt *Statement) bool {
	t := stmt.Targets[0]
	switch t.Kind {
	case TargetTable, TargetRange:
		return t.Index == nil && len(stmt.Order) == 1 && stmt.Order[0].Field == "id" && !stmt.Order[0].Desc
	case TargetRecordId:
		return true
	default:
		return false
	}
}
