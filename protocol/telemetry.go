// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/binary"
	"fmt"
)

// Telemetry flags.
const (
	// TelemetryUsedForEffects marks data potentially used for feedback
	// effects; updates should arrive with minimal latency.
	TelemetryUsedForEffects = 1 << 0

	// TelemetryUsedForDisplay marks data used for dashes and LEDs where
	// a lower update rate is acceptable.
	TelemetryUsedForDisplay = 1 << 1

	// TelemetryDeprecated marks entries kept only for backwards
	// compatibility.
	TelemetryDeprecated = 1 << 2
)

// TelemetryNameSize is the size of the NUL-terminated name field in a
// telemetry definition record.
const TelemetryNameSize = 36

// TelemetryDefSize is the encoded size of one telemetry definition record.
const TelemetryDefSize = 48

// NoAliasVariable is the alias_variable_idx value meaning the telemetry
// has no directly corresponding variable.
const NoAliasVariable = 0xffffffff

// TelemetryDef is one telemetry definition record. The id is unique in a
// session but may change across sessions; the name is the stable handle.
type TelemetryDef struct {
	ID            uint16
	Flags         uint16
	Type          Type
	AliasVariable uint32
	Name          [TelemetryNameSize]byte
}

// ParseTelemetryDef decodes one telemetry definition record.
func ParseTelemetryDef(buf []byte) (TelemetryDef, error) {
	if len(buf) < TelemetryDefSize {
		return TelemetryDef{}, fmt.Errorf("telemetry definition: %d bytes, need %d", len(buf), TelemetryDefSize)
	}
	def := TelemetryDef{
		ID:    binary.LittleEndian.Uint16(buf[0:]),
		Flags: binary.LittleEndian.Uint16(buf[2:]),
		Type: Type{
			Wire:        binary.LittleEndian.Uint16(buf[4:]),
			VariantData: binary.LittleEndian.Uint16(buf[6:]),
		},
		AliasVariable: binary.LittleEndian.Uint32(buf[8:]),
	}
	copy(def.Name[:], buf[12:12+TelemetryNameSize])
	return def, nil
}

// TelemetryDefBlock is the typed body of the telemetry-definition
// sub-blob.
type TelemetryDefBlock struct {
	DefOffset uint32
	DefSize   uint32
	DefCount  uint32
	Flags     uint32
}

const telemetryDefBlockSize = SubBlobHeaderSize + 20

// ParseTelemetryDefBlock decodes the telemetry-definition sub-blob body.
func ParseTelemetryDefBlock(buf []byte) (TelemetryDefBlock, error) {
	if len(buf) < telemetryDefBlockSize {
		return TelemetryDefBlock{}, fmt.Errorf("telemetry definition block: %d bytes, need %d", len(buf), telemetryDefBlockSize)
	}
	return TelemetryDefBlock{
		DefOffset: binary.LittleEndian.Uint32(buf[12:]),
		DefSize:   binary.LittleEndian.Uint32(buf[16:]),
		DefCount:  binary.LittleEndian.Uint32(buf[20:]),
		Flags:     binary.LittleEndian.Uint32(buf[24:]),
	}, nil
}
