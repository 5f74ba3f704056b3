// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// CoreSHMName is the well-known name of the rendezvous shared-memory
// region the backend publishes. The region is always CoreSHMSize bytes.
const CoreSHMName = "$riglink-core$"

// CoreSHMSize is the fixed size of the core rendezvous region.
const CoreSHMSize = 4096

// CoreSHMVersion is the core region layout version this implementation
// speaks. Versions are compatible when their high 16 bits match.
const CoreSHMVersion = 0x00000001

// SessionSHMVersion is the session descriptor layout version this
// implementation speaks.
const SessionSHMVersion = 0x00000001

// TCPCoreVersion is the command-stream protocol version sent in the
// register request.
const TCPCoreVersion = 0x00010000

// UDPProtocolVersionMajor is the action datagram protocol major version.
// The descriptor's udp protocol version must carry the same major (high
// 16 bits) for the session to be usable.
const UDPProtocolVersionMajor = 0

// Packet-size floors for the descriptor's advertised limits. A descriptor
// announcing less than these is corrupt.
const (
	MinPlaintextPacketSize = 4096
	MinEncryptedPacketSize = 1400
)

// MaxPublicKeys is the number of public-key offer slots in the session
// descriptor.
const MaxPublicKeys = 8

// VersionCompatible reports whether two layout versions are compatible:
// the high 16 bits (the major version) must be equal.
func VersionCompatible(known, observed uint32) bool {
	return known&0xffff0000 == observed&0xffff0000
}

// Core region backend states.
const (
	CoreOffline      = 0
	CoreInitializing = 1
	CoreActive       = 2
	CoreShutdown     = 3
)

// Session descriptor states.
const (
	SessionInitializing = 0
	SessionActive       = 1
	SessionShutdown     = 2
)

// Security methods offered in the session descriptor's public-key table.
const (
	SecurityMethodNone            = 0
	SecurityMethodX25519AES128GCM = 1
)

// Field offsets needed for live atomic reads of regions the backend keeps
// mutating. Everything else is read through a seqlock snapshot and parsed
// from the copy.
const (
	// CoreRevisionOffset is the core region's revision counter.
	CoreRevisionOffset = 4

	// SubBlobRevisionOffset is the revision counter inside every
	// sub-blob header (and the session descriptor's prefix does not
	// have one; its mutable field is the keep-alive counter below).
	SubBlobRevisionOffset = 4

	// SessionKeepAliveOffset is the keep-alive counter inside the
	// session descriptor, advanced by the backend roughly every 100ms.
	SessionKeepAliveOffset = 12
)

// Core is the parsed rendezvous region. All fields except the path are
// plain little-endian words; the path is a NUL-terminated name of the
// session descriptor's shared-memory region.
type Core struct {
	Version        uint32
	Revision       uint32
	SessionID      uint32
	SessionVersion uint32
	SessionSHMSize uint32
	State          uint32
	SessionSHMPath string
}

// coreSize is the populated prefix of the 4096-byte core region.
const coreSize = 24 + 64

// ParseCore decodes a copied snapshot of the core region. It fails when
// the buffer is short or the session path is not NUL-terminated.
func ParseCore(buf []byte) (Core, error) {
	if len(buf) < coreSize {
		return Core{}, fmt.Errorf("core region: %d bytes, need %d", len(buf), coreSize)
	}
	path, err := cstr(buf[24 : 24+64])
	if err != nil {
		return Core{}, fmt.Errorf("core region session path: %w", err)
	}
	return Core{
		Version:        binary.LittleEndian.Uint32(buf[0:]),
		Revision:       binary.LittleEndian.Uint32(buf[4:]),
		SessionID:      binary.LittleEndian.Uint32(buf[8:]),
		SessionVersion: binary.LittleEndian.Uint32(buf[12:]),
		SessionSHMSize: binary.LittleEndian.Uint32(buf[16:]),
		State:          binary.LittleEndian.Uint32(buf[20:]),
		SessionSHMPath: path,
	}, nil
}

// SubBlobHeader is the common prefix of every sub-blob region.
type SubBlobHeader struct {
	Version  uint32
	Revision uint32
	Size     uint32
}

// SubBlobHeaderSize is the encoded size of SubBlobHeader.
const SubBlobHeaderSize = 12

// ParseSubBlobHeader decodes the common sub-blob prefix from a snapshot.
func ParseSubBlobHeader(buf []byte) (SubBlobHeader, error) {
	if len(buf) < SubBlobHeaderSize {
		return SubBlobHeader{}, fmt.Errorf("sub-blob header: %d bytes, need %d", len(buf), SubBlobHeaderSize)
	}
	return SubBlobHeader{
		Version:  binary.LittleEndian.Uint32(buf[0:]),
		Revision: binary.LittleEndian.Uint32(buf[4:]),
		Size:     binary.LittleEndian.Uint32(buf[8:]),
	}, nil
}

// SubBlobRef is one entry of the descriptor's sub-blob reference table.
type SubBlobRef struct {
	ID      uint32
	Version uint32
	Size    uint32
	Path    string
}

// SubBlobRefSize is the encoded size of one reference table entry.
const SubBlobRefSize = 12 + 64

// PublicKeyOffer is one parsed public-key offer from the descriptor.
type PublicKeyOffer struct {
	Method    uint16
	Key       []byte
	Signature []byte
}

// publicKeyHeaderSize is the fixed header preceding the key bytes.
const publicKeyHeaderSize = 10

// SessionDescriptor is the parsed per-session descriptor. The parse works
// on a private copy of the shared region so a concurrently-mutating (or
// hostile) backend cannot change fields between validation and use. The
// keep-alive counter is the exception: it keeps advancing in the live
// region and must be read through SessionKeepAliveOffset.
type SessionDescriptor struct {
	Version   uint32
	SessionID uint32
	State     uint32
	DataSize  uint32

	ManagerPID uint64

	TCPProtocolVersion uint32
	TCPFeatureFlags    uint32
	TCPAddress         [4]byte
	TCPPort            uint16
	TCPMaxPacketSize   uint32

	UDPProtocolVersion        uint32
	UDPFeatureFlags           [4]uint32
	UDPAddress                [4]byte
	UDPPort                   uint16
	UDPMaxPlaintextPacketSize uint16
	UDPMaxEncryptedPacketSize uint16

	SubBlobs        []SubBlobRef
	PublicKeyOffers []PublicKeyOffer
}

// SessionDescriptorSize is the size of the fixed descriptor struct. The
// reference table and key offers live past it, at offsets the struct
// names, but always inside DataSize bytes.
const SessionDescriptorSize = 144

// Fixed field offsets of the descriptor struct.
const (
	descSessionVersion = 0
	descSessionID      = 4
	descState          = 8
	descDataSize       = 16
	descManagerPID     = 24
	descTCPVersion     = 32
	descTCPFlags       = 36
	descTCPAddress     = 40
	descTCPPort        = 44
	descTCPMaxPacket   = 48
	descUDPVersion     = 68
	descUDPFlags       = 72
	descUDPAddress     = 88
	descUDPPort        = 92
	descUDPMaxPlain    = 94
	descUDPMaxEnc      = 96
	descRefCount       = 116
	descRefSize        = 118
	descRefOffset      = 120
	descKeyOffsets     = 124
)

// ParseSessionDescriptor decodes a copied session descriptor, including
// its sub-blob reference table and public-key offers. Every offset and
// size announced by the descriptor is checked against the descriptor's
// own announced data size, which in turn must not exceed len(buf).
func ParseSessionDescriptor(buf []byte) (*SessionDescriptor, error) {
	if len(buf) < SessionDescriptorSize {
		return nil, fmt.Errorf("session descriptor: %d bytes, need %d", len(buf), SessionDescriptorSize)
	}

	d := &SessionDescriptor{
		Version:            binary.LittleEndian.Uint32(buf[descSessionVersion:]),
		SessionID:          binary.LittleEndian.Uint32(buf[descSessionID:]),
		State:              binary.LittleEndian.Uint32(buf[descState:]),
		DataSize:           binary.LittleEndian.Uint32(buf[descDataSize:]),
		ManagerPID:         binary.LittleEndian.Uint64(buf[descManagerPID:]),
		TCPProtocolVersion: binary.LittleEndian.Uint32(buf[descTCPVersion:]),
		TCPFeatureFlags:    binary.LittleEndian.Uint32(buf[descTCPFlags:]),
		TCPPort:            binary.LittleEndian.Uint16(buf[descTCPPort:]),
		TCPMaxPacketSize:   binary.LittleEndian.Uint32(buf[descTCPMaxPacket:]),
		UDPProtocolVersion: binary.LittleEndian.Uint32(buf[descUDPVersion:]),
		UDPPort:            binary.LittleEndian.Uint16(buf[descUDPPort:]),

		UDPMaxPlaintextPacketSize: binary.LittleEndian.Uint16(buf[descUDPMaxPlain:]),
		UDPMaxEncryptedPacketSize: binary.LittleEndian.Uint16(buf[descUDPMaxEnc:]),
	}
	copy(d.TCPAddress[:], buf[descTCPAddress:])
	copy(d.UDPAddress[:], buf[descUDPAddress:])
	for i := range d.UDPFeatureFlags {
		d.UDPFeatureFlags[i] = binary.LittleEndian.Uint32(buf[descUDPFlags+4*i:])
	}

	if int(d.DataSize) > len(buf) {
		return nil, fmt.Errorf("session descriptor: announced size %d exceeds buffer %d", d.DataSize, len(buf))
	}
	within := func(offset, size, count uint64) bool {
		return offset+size*count <= uint64(d.DataSize)
	}

	refCount := binary.LittleEndian.Uint16(buf[descRefCount:])
	refSize := binary.LittleEndian.Uint16(buf[descRefSize:])
	refOffset := int32(binary.LittleEndian.Uint32(buf[descRefOffset:]))
	if refCount > 0 {
		if refOffset < 0 || refSize < SubBlobRefSize ||
			!within(uint64(refOffset), uint64(refSize), uint64(refCount)) {
			return nil, fmt.Errorf("session descriptor: sub-blob table out of bounds (offset=%d size=%d count=%d)",
				refOffset, refSize, refCount)
		}
		d.SubBlobs = make([]SubBlobRef, 0, refCount)
		for i := 0; i < int(refCount); i++ {
			entry := buf[int(refOffset)+i*int(refSize):]
			path, err := cstr(entry[12 : 12+64])
			if err != nil {
				return nil, fmt.Errorf("sub-blob reference %d path: %w", i, err)
			}
			d.SubBlobs = append(d.SubBlobs, SubBlobRef{
				ID:      binary.LittleEndian.Uint32(entry[0:]),
				Version: binary.LittleEndian.Uint32(entry[4:]),
				Size:    binary.LittleEndian.Uint32(entry[8:]),
				Path:    path,
			})
		}
	}

	for i := 0; i < MaxPublicKeys; i++ {
		keyOffset := binary.LittleEndian.Uint16(buf[descKeyOffsets+2*i:])
		if keyOffset == 0 {
			continue
		}
		if !within(uint64(keyOffset), publicKeyHeaderSize, 1) {
			return nil, fmt.Errorf("public key offer %d: header out of bounds (offset=%d)", i, keyOffset)
		}
		hdr := buf[keyOffset:]
		keySize := binary.LittleEndian.Uint16(hdr[2:])
		keyOff := binary.LittleEndian.Uint16(hdr[4:])
		sigSize := binary.LittleEndian.Uint16(hdr[6:])
		sigOff := binary.LittleEndian.Uint16(hdr[8:])
		if !within(uint64(keyOffset)+uint64(keyOff), uint64(keySize), 1) ||
			!within(uint64(keyOffset)+uint64(sigOff), uint64(sigSize), 1) {
			return nil, fmt.Errorf("public key offer %d: key or signature out of bounds", i)
		}
		offer := PublicKeyOffer{
			Method:    binary.LittleEndian.Uint16(hdr[0:]),
			Key:       bytes.Clone(buf[uint32(keyOffset)+uint32(keyOff) : uint32(keyOffset)+uint32(keyOff)+uint32(keySize)]),
			Signature: bytes.Clone(buf[uint32(keyOffset)+uint32(sigOff) : uint32(keyOffset)+uint32(sigOff)+uint32(sigSize)]),
		}
		d.PublicKeyOffers = append(d.PublicKeyOffers, offer)
	}

	return d, nil
}

// cstr extracts a NUL-terminated string from a fixed-size field. A field
// with no NUL anywhere is corrupt.
func cstr(field []byte) (string, error) {
	i := bytes.IndexByte(field, 0)
	if i < 0 {
		return "", fmt.Errorf("missing NUL terminator in %d-byte field", len(field))
	}
	return string(field[:i]), nil
}
