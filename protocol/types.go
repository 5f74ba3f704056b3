// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "strconv"

// BaseType identifies the primitive type of a variable or telemetry value.
type BaseType uint8

const (
	BaseInvalid BaseType = 0x00
	BaseBool    BaseType = 0x01
	BaseI8      BaseType = 0x02
	BaseU8      BaseType = 0x03
	BaseI16     BaseType = 0x04
	BaseU16     BaseType = 0x05
	BaseI32     BaseType = 0x06
	BaseU32     BaseType = 0x07
	BaseI64     BaseType = 0x08
	BaseF32     BaseType = 0x09
	BaseF64     BaseType = 0x0A

	// BaseCString is always an array type. The array size defines the
	// maximum length of the string; the value is NUL-terminated.
	BaseCString BaseType = 0x20
)

// Variant selects how the base type is interpreted.
type Variant uint8

const (
	// VariantScalar is the plain base type.
	VariantScalar Variant = 0

	// VariantArray is a fixed-size array of the base type. The array
	// length is carried in the type's variant data.
	VariantArray Variant = 1

	// VariantBit is a single bit of an integer base type. The bit index
	// is carried in the type's variant data.
	VariantBit Variant = 2
)

// Type is the full value type of a variable or telemetry entry: a base
// type in bits 0-7, a variant in bits 8-15, and variant-specific data
// (array length or bit index) in a separate 16-bit field, exactly as the
// definition records carry them.
type Type struct {
	Wire        uint16
	VariantData uint16
}

// ScalarType returns the Type for a plain base type.
func ScalarType(base BaseType) Type {
	return Type{Wire: uint16(base)}
}

// ArrayType returns the Type for a fixed-size array of base.
func ArrayType(base BaseType, length uint16) Type {
	return Type{Wire: uint16(base) | uint16(VariantArray)<<8, VariantData: length}
}

// BitType returns the Type for a single bit of an integer base type.
func BitType(base BaseType, bitIndex uint16) Type {
	return Type{Wire: uint16(base) | uint16(VariantBit)<<8, VariantData: bitIndex}
}

// Base returns the primitive type.
func (t Type) Base() BaseType { return BaseType(t.Wire & 0xff) }

// Variant returns the type variant.
func (t Type) Variant() Variant { return Variant(t.Wire >> 8) }

// IsScalar reports whether the type is a plain base type.
func (t Type) IsScalar() bool { return t.Variant() == VariantScalar }

// IsArray reports whether the type is a fixed-size array.
func (t Type) IsArray() bool { return t.Variant() == VariantArray }

// IsBit reports whether the type is a single bit of an integer base.
func (t Type) IsBit() bool { return t.Variant() == VariantBit }

// ArrayLen returns the array length, or 0 for non-array types.
func (t Type) ArrayLen() int {
	if !t.IsArray() {
		return 0
	}
	return int(t.VariantData)
}

// BitIndex returns the bit index, or 0 for non-bit types.
func (t Type) BitIndex() int {
	if !t.IsBit() {
		return 0
	}
	return int(t.VariantData)
}

// BaseSize returns the storage size of a base type element in bytes, or 0
// for an invalid base type.
func BaseSize(base BaseType) int {
	switch base {
	case BaseBool, BaseI8, BaseU8, BaseCString:
		return 1
	case BaseI16, BaseU16:
		return 2
	case BaseI32, BaseU32, BaseF32:
		return 4
	case BaseI64, BaseF64:
		return 8
	default:
		return 0
	}
}

// ValueSize returns the total storage size of a value of this type in
// bytes. Array values multiply the element size by the array length; bit
// values occupy the full base integer they alias.
func (t Type) ValueSize() int {
	elem := BaseSize(t.Base())
	if t.IsArray() {
		return elem * int(t.VariantData)
	}
	return elem
}

// String renders the type the way definitions name it: the base type id,
// "x<len>" for arrays, ".<bit>" for bit aliases.
func (t Type) String() string {
	s := baseTypeName(t.Base())
	if t.IsArray() {
		return s + "x" + strconv.Itoa(int(t.VariantData))
	}
	if t.IsBit() {
		return s + "." + strconv.Itoa(int(t.VariantData))
	}
	return s
}

func baseTypeName(base BaseType) string {
	switch base {
	case BaseBool:
		return "boolean"
	case BaseI8:
		return "i8"
	case BaseU8:
		return "u8"
	case BaseI16:
		return "i16"
	case BaseU16:
		return "u16"
	case BaseI32:
		return "i32"
	case BaseU32:
		return "u32"
	case BaseI64:
		return "i64"
	case BaseF32:
		return "f32"
	case BaseF64:
		return "f64"
	case BaseCString:
		return "cstring"
	default:
		return "invalid"
	}
}
