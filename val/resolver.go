// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package val

// ResolverValue replaces the erased, downcastable record payload that
// resolvers historically passed around (DESIGN NOTES: "Erased record
// payloads ... become a tagged-variant ResolverValue{Record(txn_ref,
// thing), Scalar(Value)}"). TxnRef is an opaque handle the owning
// dbs.Context resolves back to the live kv.Tx/txstore pair; val stays
// free of any dependency on kv or dbs so it can sit at the bottom of
// the import graph.
type ResolverKind int

const (
	ResolverRecord ResolverKind = iota
	ResolverScalar
)

// TxnRef is a statement-scoped opaque reference to the transaction a
// ResolverRecord must be fetched through. It carries no meaning inside
// val; only the owning dbs.Context knows how to resolve one.
type TxnRef uint64

type ResolverValue struct {
	Kind   ResolverKind
	TxnRef TxnRef
	Thing  RecordId
	Scalar Value
}

func ResolvedRecord(ref TxnRef, thing RecordId) ResolverValue {
	return ResolverValue{Kind: ResolverRecord, TxnRef: ref, Thing: thing}
}

func ResolvedScalar(v Value) ResolverValue {
	return ResolverValue{Kind: ResolverScalar, Scalar: v}
}

// IsRecord reports whether this ResolverValue still needs a fetch
// through its TxnRef to materialize into a concrete Value.
func (r ResolverValue) IsRecord() bool { return r.Kind == ResolverRecord }
