// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package hnsw

import (
	"encoding/binary"

	"github.com/coredb-io/kernel/errs"
)

// legacyTag/currentTag mark the per-layer adjacency encoding version
// (§4.8 "Legacy migration"). The original stores large neighbor sets
// across several chunked keys; since m/m0 bound this implementation's
// neighbor-set size tightly, a single key always suffices and the
// migration concern reduces to recognizing and rewriting the tag byte.
const (
	legacyTag  byte = 0x00
	currentTag byte = 0x01
)

// State is the persisted HnswState record (§4.8: "enter_point,
// next_element_id, per-layer state versions").
type State struct {
	HasEnterPoint bool
	EnterPoint    uint64
	NextElementID uint64
	// TopLayers is the number of upper layers currently non-empty
	// (layers 1..TopLayers); layer 0 always exists.
	TopLayers uint16
}

func encodeState(s State) []byte {
	buf := make([]byte, 0, 1+8+8+2)
	if s.HasEnterPoint {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], s.EnterPoint)
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint64(tmp[:], s.NextElementID)
	buf = append(buf, tmp[:]...)
	var tmp2 [2]byte
	binary.BigEndian.PutUint16(tmp2[:], s.TopLayers)
	return append(buf, tmp2[:]...)
}

func decodeState(b []byte) (State, error) {
	if len(b) != 1+8+8+2 {
		return State{}, errs.New(errs.IndexError, "hnsw: malformed state record")
	}
	var s State
	s.HasEnterPoint = b[0] == 1
	s.EnterPoint = binary.BigEndian.Uint64(b[1:9])
	s.NextElementID = binary.BigEndian.Uint64(b[9:17])
	s.TopLayers = binary.BigEndian.Uint16(b[17:19])
	return s, nil
}
