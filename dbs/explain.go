// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package dbs

// ExplainStep is one staged entry in an Explanation, logged the same
// way erigon's turbo/snapshotsync reports staged download/index
// progress: a short operation name plus a handful of key-value
// details, not a full query plan tree.
type ExplainStep struct {
	Operation string
	Detail    map[string]any
}

// Explanation is an optional EXPLAIN-equivalent trace of what the
// Executor actually did for one statement, assembled as each pipeline
// stage runs rather than computed up front, so it reflects the real
// push-down decision and collector choice instead of a hypothetical
// plan.
type Explanation struct {
	Steps []ExplainStep
}

func (e *Explanation) record(operation string, detail map[string]any) {
	if e == nil {
		return
	}
	e.Steps = append(e.Steps, ExplainStep{Operation: operation, Detail: detail})
}
