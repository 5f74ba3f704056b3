// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "encoding/binary"

// Action ids. An action is a one-way, low-latency, datagram-framed message
// from client to backend; a single datagram may carry several frames.
const (
	ActionFbEffect               = 0x0001
	ActionFbEffectClear          = 0x0002
	ActionRegisterTelemetryGroup = 0x1000
	ActionSetTelemetryGroup      = 0x1001

	// Reserved legacy/test action ids. Never produced by this
	// implementation but kept so dumps of backend traffic decode.
	ActionTempApEffects     = 0x000a
	ActionTempTelemetryData = 0x001d
)

// Action frame flags.
const (
	// ActionFlagEncrypted marks a frame whose body is AES-128-GCM
	// encrypted with the secure-session key. The frame header is then
	// followed by a 12-byte IV and the body is terminated by a 12-byte
	// authentication tag.
	ActionFlagEncrypted = 1 << 0
)

// ActionHeaderSize is the encoded size of the frame header
// {controller_id, flags, action_id, size}.
const ActionHeaderSize = 8

// Encrypted frame overhead.
const (
	ActionIVSize  = 12
	ActionTagSize = 12
)

// EffectMaxSampleCount caps the samples in a single effect action.
const EffectMaxSampleCount = 256

// Effect sample formats.
const (
	SampleFormatF32 = 0

	// SampleFormatI16 values are scaled -1.0..1.0 on the device, so the
	// pipeline gain matters when using it.
	SampleFormatI16 = 1

	// SampleFormatU16 values are scaled 0..1.0 on the device.
	SampleFormatU16 = 2
)

// EffectAADSize is the size of the authenticated-but-not-encrypted block
// at the start of an effect action payload: pipeline index, flags, and
// reserved padding.
const EffectAADSize = 16

// EffectEncHeaderSize is the size of the encrypted effect block header
// that precedes the samples: sample format, duration high bits, sample
// count minus one, sample duration, and the 64-bit start timestamp.
const EffectEncHeaderSize = 16

// EffectClearBodySize is the size of the clear-effect body: the cleared
// pipeline count followed by 31 pipeline index slots.
const EffectClearBodySize = 32

// ActionHeader is the frame header common to all actions.
type ActionHeader struct {
	ControllerID uint16
	Flags        uint16
	ActionID     uint16
	Size         uint16
}

// PutActionHeader encodes h at the start of buf, which must hold at least
// ActionHeaderSize bytes.
func PutActionHeader(buf []byte, h ActionHeader) {
	binary.LittleEndian.PutUint16(buf[0:], h.ControllerID)
	binary.LittleEndian.PutUint16(buf[2:], h.Flags)
	binary.LittleEndian.PutUint16(buf[4:], h.ActionID)
	binary.LittleEndian.PutUint16(buf[6:], h.Size)
}

// ParseActionHeader decodes a frame header.
func ParseActionHeader(buf []byte) (ActionHeader, bool) {
	if len(buf) < ActionHeaderSize {
		return ActionHeader{}, false
	}
	return ActionHeader{
		ControllerID: binary.LittleEndian.Uint16(buf[0:]),
		Flags:        binary.LittleEndian.Uint16(buf[2:]),
		ActionID:     binary.LittleEndian.Uint16(buf[4:]),
		Size:         binary.LittleEndian.Uint16(buf[6:]),
	}, true
}
