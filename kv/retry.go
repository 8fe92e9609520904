// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package kv

import (
	"context"

	"github.com/cenkalti/backoff/v4"

	"github.com/coredb-io/kernel/errs"
)

// Retry runs body against a fresh transaction from db, retrying only
// on errs.ErrTxConflict (§7: "TxConflict ... the caller, not the core,
// may retry") with exponential backoff. Any other error, or exceeding
// attempts/elapsed budget, returns immediately.
func Retry(ctx context.Context, db DB, mode Mode, lock Lock, maxAttempts int, body func(RwTx) error) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxAttempts)), ctx)

	return backoff.Retry(func() error {
		tx, err := db.BeginTx(ctx, mode, lock)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := body(tx); err != nil {
			_ = tx.Cancel(ctx)
			if kind, ok := errs.Of(err); ok && kind == errs.TxConflict {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := tx.Commit(ctx); err != nil {
			if kind, ok := errs.Of(err); ok && kind == errs.TxConflict {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}, bo)
}

// IsConflict reports whether err is (or wraps) errs.ErrTxConflict.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	kind, ok := errs.Of(err)
	return ok && kind == errs.TxConflict
}
