// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"encoding/binary"
	"math"

	"github.com/riglink-foundation/riglink/protocol"
)

// Telemetry is one client-side telemetry value: a named, typed cell the
// simulator writes and update groups pack onto the wire. The concrete
// types (Bool, Float32, ...) all embed cell.
type Telemetry interface {
	// Name is the definition name the cell binds to at configure time.
	Name() string

	// Type is the declared value type; it must match the definition's.
	Type() protocol.Type

	// valueBytes exposes the little-endian serialized value.
	valueBytes() *[8]byte

	// binding exposes the resolved definition reference.
	binding() *cellBinding
}

// cellBinding is filled in by Group.Configure: the resolved definition
// id (0 when the backend has no matching definition) and flags.
type cellBinding struct {
	id    uint16
	flags uint16
}

// cell is the shared implementation behind every concrete telemetry
// type. Value bytes are written by the simulator thread and read at
// pack time; sends are point-in-time, so no synchronization is applied.
type cell struct {
	name  string
	typ   protocol.Type
	value [8]byte
	ref   cellBinding
}

func (c *cell) Name() string          { return c.name }
func (c *cell) Type() protocol.Type   { return c.typ }
func (c *cell) valueBytes() *[8]byte  { return &c.value }
func (c *cell) binding() *cellBinding { return &c.ref }

// Resolved reports whether the last Configure matched this cell to a
// backend definition.
func (c *cell) Resolved() bool { return c.ref.id != 0 }

func newCell(name string, base protocol.BaseType) cell {
	return cell{name: name, typ: protocol.ScalarType(base)}
}

// Bool is a boolean telemetry cell.
type Bool struct{ cell }

// NewBool declares a boolean telemetry value.
func NewBool(name string) *Bool { return &Bool{newCell(name, protocol.BaseBool)} }

// Set stores the value.
func (b *Bool) Set(v bool) {
	if v {
		b.value[0] = 1
	} else {
		b.value[0] = 0
	}
}

// Int8 is an i8 telemetry cell.
type Int8 struct{ cell }

// NewInt8 declares an i8 telemetry value.
func NewInt8(name string) *Int8 { return &Int8{newCell(name, protocol.BaseI8)} }

// Set stores the value.
func (c *Int8) Set(v int8) { c.value[0] = byte(v) }

// Uint8 is a u8 telemetry cell.
type Uint8 struct{ cell }

// NewUint8 declares a u8 telemetry value.
func NewUint8(name string) *Uint8 { return &Uint8{newCell(name, protocol.BaseU8)} }

// Set stores the value.
func (c *Uint8) Set(v uint8) { c.value[0] = v }

// Int16 is an i16 telemetry cell.
type Int16 struct{ cell }

// NewInt16 declares an i16 telemetry value.
func NewInt16(name string) *Int16 { return &Int16{newCell(name, protocol.BaseI16)} }

// Set stores the value.
func (c *Int16) Set(v int16) { binary.LittleEndian.PutUint16(c.value[:], uint16(v)) }

// Uint16 is a u16 telemetry cell.
type Uint16 struct{ cell }

// NewUint16 declares a u16 telemetry value.
func NewUint16(name string) *Uint16 { return &Uint16{newCell(name, protocol.BaseU16)} }

// Set stores the value.
func (c *Uint16) Set(v uint16) { binary.LittleEndian.PutUint16(c.value[:], v) }

// Int32 is an i32 telemetry cell.
type Int32 struct{ cell }

// NewInt32 declares an i32 telemetry value.
func NewInt32(name string) *Int32 { return &Int32{newCell(name, protocol.BaseI32)} }

// Set stores the value.
func (c *Int32) Set(v int32) { binary.LittleEndian.PutUint32(c.value[:], uint32(v)) }

// Uint32 is a u32 telemetry cell.
type Uint32 struct{ cell }

// NewUint32 declares a u32 telemetry value.
func NewUint32(name string) *Uint32 { return &Uint32{newCell(name, protocol.BaseU32)} }

// Set stores the value.
func (c *Uint32) Set(v uint32) { binary.LittleEndian.PutUint32(c.value[:], v) }

// Int64 is an i64 telemetry cell.
type Int64 struct{ cell }

// NewInt64 declares an i64 telemetry value.
func NewInt64(name string) *Int64 { return &Int64{newCell(name, protocol.BaseI64)} }

// Set stores the value.
func (c *Int64) Set(v int64) { binary.LittleEndian.PutUint64(c.value[:], uint64(v)) }

// Float32 is an f32 telemetry cell.
type Float32 struct{ cell }

// NewFloat32 declares an f32 telemetry value.
func NewFloat32(name string) *Float32 { return &Float32{newCell(name, protocol.BaseF32)} }

// Set stores the value.
func (c *Float32) Set(v float32) { binary.LittleEndian.PutUint32(c.value[:], math.Float32bits(v)) }

// Float64 is an f64 telemetry cell.
type Float64 struct{ cell }

// NewFloat64 declares an f64 telemetry value.
func NewFloat64(name string) *Float64 { return &Float64{newCell(name, protocol.BaseF64)} }

// Set stores the value.
func (c *Float64) Set(v float64) { binary.LittleEndian.PutUint64(c.value[:], math.Float64bits(v)) }
