// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package errs defines the typed error taxonomy that every layer of
// the kernel surfaces through, and the propagation policy attached to
// each kind (statement-scoped vs. transaction-scoped abort).
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the closed taxonomy of error kinds the kernel produces.
type Kind int

const (
	SchemaError Kind = iota
	TypeError
	PermissionDenied
	InvalidAuth
	KeyExists
	TxConflict
	TxFinished
	QueryTimedout
	QueryCancelled
	QueryBeyondMemoryThreshold
	QueryNotExecuted
	InvalidControlFlow
	InvalidStatementTarget
	IndexError
	Internal
)

func (k Kind) String() string {
	switch k {
	case SchemaError:
		return "SchemaError"
	case TypeError:
		return "TypeError"
	case PermissionDenied:
		return "PermissionDenied"
	case InvalidAuth:
		return "InvalidAuth"
	case KeyExists:
		return "KeyExists"
	case TxConflict:
		return "TxConflict"
	case TxFinished:
		return "TxFinished"
	case QueryTimedout:
		return "QueryTimedout"
	case QueryCancelled:
		return "QueryCancelled"
	case QueryBeyondMemoryThreshold:
		return "QueryBeyondMemoryThreshold"
	case QueryNotExecuted:
		return "QueryNotExecuted"
	case InvalidControlFlow:
		return "InvalidControlFlow"
	case InvalidStatementTarget:
		return "InvalidStatementTarget"
	case IndexError:
		return "IndexError"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// AbortsTransaction reports whether an error of this kind aborts the
// whole enclosing transaction (per spec §7 propagation policy) rather
// than only the statement that raised it.
func (k Kind) AbortsTransaction() bool {
	switch k {
	case TxConflict, TxFinished:
		return true
	default:
		return false
	}
}

// Recoverable reports whether the caller may retry the operation that
// produced this error (only TxConflict, and only the caller, never the
// core itself, per spec §7).
func (k Kind) Recoverable() bool {
	return k == TxConflict
}

// CoreError is the concrete error type returned by kernel operations.
type CoreError struct {
	Kind Kind
	msg  string
	err  error
}

func (e *CoreError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *CoreError) Unwrap() error { return e.err }

// Is allows errors.Is(err, errs.ErrTxConflict)-style sentinel checks to
// work against kind-tagged errors produced via New/Wrap.
func (e *CoreError) Is(target error) bool {
	other, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return other.Kind == e.Kind && other.msg == ""
}

// New creates a CoreError of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and context to an existing error, preserving a
// stack trace via github.com/pkg/errors the way the teacher wraps
// low-level driver errors before they surface to callers.
func Wrap(kind Kind, err error, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, msg: fmt.Sprintf(format, args...), err: errors.WithStack(err)}
}

// Sentinel values for errors.Is comparisons against a bare kind,
// e.g. errors.Is(err, errs.ErrTxConflict).
var (
	ErrSchemaError             = &CoreError{Kind: SchemaError}
	ErrTypeError               = &CoreError{Kind: TypeError}
	ErrPermissionDenied        = &CoreError{Kind: PermissionDenied}
	ErrInvalidAuth             = &CoreError{Kind: InvalidAuth}
	ErrKeyExists               = &CoreError{Kind: KeyExists}
	ErrTxConflict              = &CoreError{Kind: TxConflict}
	ErrTxFinished              = &CoreError{Kind: TxFinished}
	ErrQueryTimedout           = &CoreError{Kind: QueryTimedout}
	ErrQueryCancelled          = &CoreError{Kind: QueryCancelled}
	ErrQueryBeyondMemoryThresh = &CoreError{Kind: QueryBeyondMemoryThreshold}
	ErrQueryNotExecuted        = &CoreError{Kind: QueryNotExecuted}
	ErrInvalidControlFlow      = &CoreError{Kind: InvalidControlFlow}
	ErrInvalidStatementTarget  = &CoreError{Kind: InvalidStatementTarget}
	ErrIndexError              = &CoreError{Kind: IndexError}
	ErrInternal                = &CoreError{Kind: Internal}
)

// Of reports the Kind of err if it is (or wraps) a *CoreError.
func Of(err error) (Kind, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}
