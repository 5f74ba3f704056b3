// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package ffb

import (
	"encoding/binary"
	"math"

	"github.com/riglink-foundation/riglink/action"
	"github.com/riglink-foundation/riglink/protocol"
	"github.com/riglink-foundation/riglink/secure"
)

// deviceFieldSize is the device session id that follows the AAD block
// in effect and clear payloads.
const deviceFieldSize = 2

// buildEffectAction frames one effect-offset action into the builder:
// the authenticated-but-plaintext pipeline block, the target device, and
// the encrypted-when-secured sample block. startTime is a device
// timestamp; sampleDuration is in device clock ticks.
func buildEffectAction(builder *action.Builder, sec *secure.Session, pipelineIndex uint8,
	device protocol.DeviceSessionID, startTime int64, sampleDuration int64, samples []float32) bool {

	if len(samples) == 0 || len(samples) > protocol.EffectMaxSampleCount {
		return false
	}

	sampleBytes := 4 * len(samples)
	encrypted := sec != nil
	if encrypted {
		// The device decrypts whole AES blocks.
		if pad := sampleBytes % 16; pad != 0 {
			sampleBytes += 16 - pad
		}
	}

	payloadSize := protocol.EffectAADSize + deviceFieldSize + protocol.EffectEncHeaderSize + sampleBytes
	flags := uint16(0)
	ivOffset := 0
	if encrypted {
		payloadSize += protocol.ActionIVSize + protocol.ActionTagSize
		flags = protocol.ActionFlagEncrypted
		ivOffset = protocol.ActionIVSize
	}

	payload := builder.Start(protocol.ActionFbEffect, payloadSize, flags)
	if payload == nil {
		return false
	}

	aad := payload[ivOffset : ivOffset+protocol.EffectAADSize]
	aad[0] = pipelineIndex
	aad[1] = 0 // effect flags

	deviceOffset := ivOffset + protocol.EffectAADSize
	binary.LittleEndian.PutUint16(payload[deviceOffset:], uint16(device))

	encOffset := deviceOffset + deviceFieldSize
	enc := payload[encOffset:]
	enc[0] = protocol.SampleFormatF32
	enc[1] = uint8(sampleDuration >> 32)
	binary.LittleEndian.PutUint16(enc[2:], uint16(len(samples)-1))
	binary.LittleEndian.PutUint32(enc[4:], uint32(sampleDuration))
	binary.LittleEndian.PutUint32(enc[8:], uint32(startTime))
	binary.LittleEndian.PutUint32(enc[12:], uint32(startTime>>32))
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(enc[protocol.EffectEncHeaderSize+4*i:], math.Float32bits(sample))
	}

	if encrypted {
		plaintext := payload[encOffset : encOffset+protocol.EffectEncHeaderSize+sampleBytes]
		if _, err := sec.Seal(payload[:protocol.ActionIVSize], aad, plaintext); err != nil {
			builder.Reset()
			return false
		}
	}
	return true
}

// buildClearAction frames a clear-effect action for one pipeline. Clear
// actions are never encrypted.
func buildClearAction(builder *action.Builder, pipelineIndex uint8, device protocol.DeviceSessionID) bool {
	payloadSize := protocol.EffectAADSize + deviceFieldSize + protocol.EffectClearBodySize
	payload := builder.Start(protocol.ActionFbEffectClear, payloadSize, 0)
	if payload == nil {
		return false
	}

	binary.LittleEndian.PutUint16(payload[protocol.EffectAADSize:], uint16(device))
	body := payload[protocol.EffectAADSize+deviceFieldSize:]
	body[0] = 1 // cleared pipeline count
	body[1] = pipelineIndex
	return true
}
