// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package variables

import (
	"bytes"
	"math"

	"github.com/riglink-foundation/riglink/lib/seqlock"
	"github.com/riglink-foundation/riglink/protocol"
)

// Value is a live view of one variable's storage in the shared region.
// The backend keeps writing it; every read sees the most recent value.
// 4- and 8-byte scalars are read with atomic loads; 1- and 2-byte
// scalars are read byte by byte. Arrays (including cstring
// values) carry an 8-byte revision counter before their elements and are
// copied under CopyArray's seqlock loop.
//
// The zero Value is invalid; Valid reports usability.
type Value struct {
	region []byte
	offset int
	typ    protocol.Type
}

// Valid reports whether the view points at storage.
func (v Value) Valid() bool { return v.region != nil }

// Type returns the variable's declared type.
func (v Value) Type() protocol.Type { return v.typ }

// load4 and load8 read the aligned scalar words backing the value.
func (v Value) load4() uint32 { return seqlock.LoadUint32(v.region, v.offset) }
func (v Value) load8() uint64 { return seqlock.LoadUint64(v.region, v.offset) }

// Bool reads a boolean or bit-variant value.
func (v Value) Bool() bool {
	if v.typ.IsBit() {
		return v.loadInteger()&(1<<v.typ.BitIndex()) != 0
	}
	return v.region[v.offset] != 0
}

// loadInteger reads the full base integer a bit variant aliases.
func (v Value) loadInteger() uint64 {
	switch protocol.BaseSize(v.typ.Base()) {
	case 8:
		return v.load8()
	case 4:
		return uint64(v.load4())
	case 2:
		return uint64(v.region[v.offset]) | uint64(v.region[v.offset+1])<<8
	default:
		return uint64(v.region[v.offset])
	}
}

// Int8 reads an i8 value.
func (v Value) Int8() int8 { return int8(v.region[v.offset]) }

// Uint8 reads a u8 value.
func (v Value) Uint8() uint8 { return v.region[v.offset] }

// Int16 reads an i16 value.
func (v Value) Int16() int16 {
	return int16(uint16(v.region[v.offset]) | uint16(v.region[v.offset+1])<<8)
}

// Uint16 reads a u16 value.
func (v Value) Uint16() uint16 {
	return uint16(v.region[v.offset]) | uint16(v.region[v.offset+1])<<8
}

// Int32 reads an i32 value atomically.
func (v Value) Int32() int32 { return int32(v.load4()) }

// Uint32 reads a u32 value atomically.
func (v Value) Uint32() uint32 { return v.load4() }

// Int64 reads an i64 value atomically.
func (v Value) Int64() int64 { return int64(v.load8()) }

// Float32 reads an f32 value atomically.
func (v Value) Float32() float32 { return math.Float32frombits(v.load4()) }

// Float64 reads an f64 value atomically.
func (v Value) Float64() float64 { return math.Float64frombits(v.load8()) }

// CopyArray snapshots an array value's elements into dst, which must be
// exactly the array's byte size. Returns false when the backend kept the
// array under modification for the whole retry budget.
func (v Value) CopyArray(dst []byte) bool {
	if !v.typ.IsArray() || len(dst) != v.typ.ValueSize() {
		return false
	}
	return seqlock.CopyArray(v.region[v.offset:], dst)
}

// String snapshots a cstring value. Returns "" when the value is not a
// cstring or the snapshot keeps failing.
func (v Value) String() string {
	if v.typ.Base() != protocol.BaseCString || !v.typ.IsArray() {
		return ""
	}
	buf := make([]byte, v.typ.ValueSize())
	if !seqlock.CopyArray(v.region[v.offset:], buf) {
		return ""
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}
