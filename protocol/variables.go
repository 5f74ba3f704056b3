// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/binary"
	"fmt"
)

// Sub-blob ids and layout versions referenced from the session descriptor.
const (
	VariableHeaderSHMID      = 0x85532367
	VariableHeaderSHMVersion = 0x00000001

	VariableDataSHMID      = 0x85782367
	VariableDataSHMVersion = 0x00000001

	TelemetryDefinitionSHMID      = 0x78d38efb
	TelemetryDefinitionSHMVersion = 0x00000001

	DeviceInfoSHMID      = 0x89765893
	DeviceInfoSHMVersion = 0x00000001

	SimDataSHMID      = 0x896f43a2
	SimDataSHMVersion = 0x00000001
)

// Variable flags.
const (
	// VarFlagStable variables are guaranteed to stay supported and
	// available in future backend releases.
	VarFlagStable = 1 << 0

	// VarFlagDeviceConstant variables will not change while the device
	// stays connected.
	VarFlagDeviceConstant = 1 << 2

	// VarFlagSessionConstant variables will not change unless the
	// backend restarts.
	VarFlagSessionConstant = 1 << 3
)

// VariableNameSize is the size of the NUL-terminated name field in a
// variable definition record.
const VariableNameSize = 50

// VariableDefSize is the encoded size of one variable definition record.
const VariableDefSize = 64

// VariableHeaderBlock is the typed body of the variable-definition
// sub-blob, past the common SubBlobHeader.
type VariableHeaderBlock struct {
	DefOffset uint32
	DefSize   uint32
	DefCount  uint32
	Flags     uint32
}

// variableHeaderBlockSize includes the common header and the reserved
// alignment word.
const variableHeaderBlockSize = SubBlobHeaderSize + 20

// ParseVariableHeaderBlock decodes the variable-definition sub-blob body.
func ParseVariableHeaderBlock(buf []byte) (VariableHeaderBlock, error) {
	if len(buf) < variableHeaderBlockSize {
		return VariableHeaderBlock{}, fmt.Errorf("variable header block: %d bytes, need %d", len(buf), variableHeaderBlockSize)
	}
	return VariableHeaderBlock{
		DefOffset: binary.LittleEndian.Uint32(buf[12:]),
		DefSize:   binary.LittleEndian.Uint32(buf[16:]),
		DefCount:  binary.LittleEndian.Uint32(buf[20:]),
		Flags:     binary.LittleEndian.Uint32(buf[24:]),
	}, nil
}

// VariableDataBlock is the typed body of the variable-value sub-blob.
type VariableDataBlock struct {
	DataOffset uint32
	DataSize   uint32
	Flags      uint32
}

const variableDataBlockSize = SubBlobHeaderSize + 12

// ParseVariableDataBlock decodes the variable-value sub-blob body.
func ParseVariableDataBlock(buf []byte) (VariableDataBlock, error) {
	if len(buf) < variableDataBlockSize {
		return VariableDataBlock{}, fmt.Errorf("variable data block: %d bytes, need %d", len(buf), variableDataBlockSize)
	}
	return VariableDataBlock{
		DataOffset: binary.LittleEndian.Uint32(buf[12:]),
		DataSize:   binary.LittleEndian.Uint32(buf[16:]),
		Flags:      binary.LittleEndian.Uint32(buf[20:]),
	}, nil
}

// VariableDef is one variable definition record: the name is only unique
// in the context of one device session id, and the value offset points
// into the variable-value sub-blob. Value offsets are aligned so a single
// element can be read atomically.
type VariableDef struct {
	Flags           uint32
	Type            Type
	ValueOffset     uint32
	DeviceSessionID DeviceSessionID
	Name            [VariableNameSize]byte
}

// ParseVariableDef decodes one definition record.
func ParseVariableDef(buf []byte) (VariableDef, error) {
	if len(buf) < VariableDefSize {
		return VariableDef{}, fmt.Errorf("variable definition: %d bytes, need %d", len(buf), VariableDefSize)
	}
	def := VariableDef{
		Flags: binary.LittleEndian.Uint32(buf[0:]),
		Type: Type{
			Wire:        binary.LittleEndian.Uint16(buf[4:]),
			VariantData: binary.LittleEndian.Uint16(buf[6:]),
		},
		ValueOffset:     binary.LittleEndian.Uint32(buf[8:]),
		DeviceSessionID: DeviceSessionID(binary.LittleEndian.Uint16(buf[12:])),
	}
	copy(def.Name[:], buf[14:14+VariableNameSize])
	return def, nil
}

// BSONBlobBody is the typed body of the BSON-carrying sub-blobs (device
// info and sim data): the offset and size of one BSON document inside the
// region.
type BSONBlobBody struct {
	DataOffset uint32
	DataSize   uint32
	Flags      uint32
}

// BSONBlobBodySize includes the common sub-blob header.
const BSONBlobBodySize = SubBlobHeaderSize + 12

// ParseBSONBlobBody decodes a BSON sub-blob body.
func ParseBSONBlobBody(buf []byte) (BSONBlobBody, error) {
	if len(buf) < BSONBlobBodySize {
		return BSONBlobBody{}, fmt.Errorf("bson blob body: %d bytes, need %d", len(buf), BSONBlobBodySize)
	}
	return BSONBlobBody{
		DataOffset: binary.LittleEndian.Uint32(buf[12:]),
		DataSize:   binary.LittleEndian.Uint32(buf[16:]),
		Flags:      binary.LittleEndian.Uint32(buf[20:]),
	}, nil
}
