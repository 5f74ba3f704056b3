// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package backendtest

import (
	"encoding/binary"

	"github.com/riglink-foundation/riglink/protocol"
)

// StableRevision is the revision counter value the builders stamp on
// every region: even and >= 2, so seqlock readers accept it.
const StableRevision = 2

// CoreParams parameterizes a core rendezvous region.
type CoreParams struct {
	Version        uint32
	Revision       uint32
	SessionID      uint32
	SessionVersion uint32
	SessionSHMSize uint32
	State          uint32
	SessionPath    string
}

// CoreRegion builds the 4096-byte core region. Zero-value fields get
// sensible defaults: current versions, active state, stable revision.
func CoreRegion(p CoreParams) []byte {
	if p.Version == 0 {
		p.Version = protocol.CoreSHMVersion
	}
	if p.Revision == 0 {
		p.Revision = StableRevision
	}
	if p.SessionVersion == 0 {
		p.SessionVersion = protocol.SessionSHMVersion
	}

	buf := make([]byte, protocol.CoreSHMSize)
	binary.LittleEndian.PutUint32(buf[0:], p.Version)
	binary.LittleEndian.PutUint32(buf[4:], p.Revision)
	binary.LittleEndian.PutUint32(buf[8:], p.SessionID)
	binary.LittleEndian.PutUint32(buf[12:], p.SessionVersion)
	binary.LittleEndian.PutUint32(buf[16:], p.SessionSHMSize)
	binary.LittleEndian.PutUint32(buf[20:], p.State)
	copy(buf[24:24+63], p.SessionPath)
	return buf
}

// KeyOffer is a public-key offer to embed in a session descriptor.
type KeyOffer struct {
	Method    uint16
	Key       []byte
	Signature []byte
}

// SessionParams parameterizes a session descriptor region.
type SessionParams struct {
	Version   uint32
	SessionID uint32
	State     uint32
	KeepAlive uint32

	TCPAddress [4]byte
	TCPPort    uint16

	UDPAddress       [4]byte
	UDPPort          uint16
	MaxPlaintextSize uint16
	MaxEncryptedSize uint16

	UDPProtocolVersion uint32

	SubBlobs []protocol.SubBlobRef
	Offers   []KeyOffer
}

// SessionRegion builds a session descriptor region: the fixed struct,
// then the sub-blob reference table, then the key offers. Zero-value
// fields default to a valid active descriptor on loopback.
func SessionRegion(p SessionParams) []byte {
	if p.Version == 0 {
		p.Version = protocol.SessionSHMVersion
	}
	if p.MaxPlaintextSize == 0 {
		p.MaxPlaintextSize = protocol.MinPlaintextPacketSize
	}
	if p.MaxEncryptedSize == 0 {
		p.MaxEncryptedSize = protocol.MinEncryptedPacketSize
	}
	if p.TCPAddress == ([4]byte{}) {
		p.TCPAddress = [4]byte{127, 0, 0, 1}
	}
	if p.UDPAddress == ([4]byte{}) {
		p.UDPAddress = [4]byte{127, 0, 0, 1}
	}

	refOffset := protocol.SessionDescriptorSize
	refSize := protocol.SubBlobRefSize
	offersOffset := refOffset + len(p.SubBlobs)*refSize

	size := offersOffset
	for _, offer := range p.Offers {
		size += 10 + len(offer.Key) + len(offer.Signature)
	}

	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:], p.Version)
	binary.LittleEndian.PutUint32(buf[4:], p.SessionID)
	binary.LittleEndian.PutUint32(buf[8:], p.State)
	binary.LittleEndian.PutUint32(buf[12:], p.KeepAlive)
	binary.LittleEndian.PutUint32(buf[16:], uint32(size))
	binary.LittleEndian.PutUint64(buf[24:], 4242) // backend pid
	binary.LittleEndian.PutUint32(buf[32:], protocol.TCPCoreVersion)
	copy(buf[40:44], p.TCPAddress[:])
	binary.LittleEndian.PutUint16(buf[44:], p.TCPPort)
	binary.LittleEndian.PutUint32(buf[48:], 65536)
	binary.LittleEndian.PutUint32(buf[68:], p.UDPProtocolVersion)
	copy(buf[88:92], p.UDPAddress[:])
	binary.LittleEndian.PutUint16(buf[92:], p.UDPPort)
	binary.LittleEndian.PutUint16(buf[94:], p.MaxPlaintextSize)
	binary.LittleEndian.PutUint16(buf[96:], p.MaxEncryptedSize)

	binary.LittleEndian.PutUint16(buf[116:], uint16(len(p.SubBlobs)))
	binary.LittleEndian.PutUint16(buf[118:], uint16(refSize))
	binary.LittleEndian.PutUint32(buf[120:], uint32(refOffset))

	for i, ref := range p.SubBlobs {
		entry := buf[refOffset+i*refSize:]
		binary.LittleEndian.PutUint32(entry[0:], ref.ID)
		binary.LittleEndian.PutUint32(entry[4:], ref.Version)
		binary.LittleEndian.PutUint32(entry[8:], ref.Size)
		copy(entry[12:12+63], ref.Path)
	}

	at := offersOffset
	for i, offer := range p.Offers {
		binary.LittleEndian.PutUint16(buf[124+2*i:], uint16(at))
		hdr := buf[at:]
		binary.LittleEndian.PutUint16(hdr[0:], offer.Method)
		binary.LittleEndian.PutUint16(hdr[2:], uint16(len(offer.Key)))
		binary.LittleEndian.PutUint16(hdr[4:], 10)
		binary.LittleEndian.PutUint16(hdr[6:], uint16(len(offer.Signature)))
		binary.LittleEndian.PutUint16(hdr[8:], uint16(10+len(offer.Key)))
		copy(buf[at+10:], offer.Key)
		copy(buf[at+10+len(offer.Key):], offer.Signature)
		at += 10 + len(offer.Key) + len(offer.Signature)
	}

	return buf
}

// SetKeepAlive overwrites the keep-alive counter in a session region.
func SetKeepAlive(region []byte, value uint32) {
	binary.LittleEndian.PutUint32(region[protocol.SessionKeepAliveOffset:], value)
}

// SetRevision overwrites the revision counter of a region whose counter
// sits at the standard offset.
func SetRevision(region []byte, value uint32) {
	binary.LittleEndian.PutUint32(region[4:], value)
}

// regionSlack is the number of spare definition slots every definition
// region reserves, so tests can publish more entries later the way the
// backend does: into pre-sized shared memory, count updated last.
const regionSlack = 64

// VariableRegions builds a matching pair of variable-header and
// variable-data regions. defs index into values via their ValueOffset
// fields; values is laid out by the caller. Arrays must include their
// 8-byte counter prefix in values.
func VariableRegions(defs []protocol.VariableDef, values []byte) (defsRegion, valuesRegion []byte) {
	const defOffset = 32
	defsRegion = make([]byte, defOffset+(len(defs)+regionSlack)*protocol.VariableDefSize)
	binary.LittleEndian.PutUint32(defsRegion[0:], protocol.VariableHeaderSHMVersion)
	binary.LittleEndian.PutUint32(defsRegion[4:], StableRevision)
	binary.LittleEndian.PutUint32(defsRegion[8:], uint32(len(defsRegion)))
	binary.LittleEndian.PutUint32(defsRegion[12:], defOffset)
	binary.LittleEndian.PutUint32(defsRegion[16:], protocol.VariableDefSize)
	binary.LittleEndian.PutUint32(defsRegion[20:], uint32(len(defs)))
	for i, def := range defs {
		encodeVariableDef(defsRegion[defOffset+i*protocol.VariableDefSize:], def)
	}

	const dataOffset = 24
	valuesRegion = make([]byte, dataOffset+len(values))
	binary.LittleEndian.PutUint32(valuesRegion[0:], protocol.VariableDataSHMVersion)
	binary.LittleEndian.PutUint32(valuesRegion[4:], StableRevision)
	binary.LittleEndian.PutUint32(valuesRegion[8:], uint32(len(valuesRegion)))
	binary.LittleEndian.PutUint32(valuesRegion[12:], dataOffset)
	binary.LittleEndian.PutUint32(valuesRegion[16:], uint32(len(values)))
	copy(valuesRegion[dataOffset:], values)
	return defsRegion, valuesRegion
}

// AppendVariableDefs publishes more definitions into a region built by
// VariableRegions, in place: the records are written first, the count
// last, the way the backend sequences it.
func AppendVariableDefs(defsRegion []byte, defs []protocol.VariableDef) {
	const defOffset = 32
	count := binary.LittleEndian.Uint32(defsRegion[20:])
	for i, def := range defs {
		encodeVariableDef(defsRegion[defOffset+(int(count)+i)*protocol.VariableDefSize:], def)
	}
	binary.LittleEndian.PutUint32(defsRegion[20:], count+uint32(len(defs)))
}

func encodeVariableDef(dst []byte, def protocol.VariableDef) {
	binary.LittleEndian.PutUint32(dst[0:], def.Flags)
	binary.LittleEndian.PutUint16(dst[4:], def.Type.Wire)
	binary.LittleEndian.PutUint16(dst[6:], def.Type.VariantData)
	binary.LittleEndian.PutUint32(dst[8:], def.ValueOffset)
	binary.LittleEndian.PutUint16(dst[12:], uint16(def.DeviceSessionID))
	copy(dst[14:14+protocol.VariableNameSize], def.Name[:])
}

// VarName converts a string to the fixed-size definition name field.
func VarName(name string) (field [protocol.VariableNameSize]byte) {
	copy(field[:protocol.VariableNameSize-1], name)
	return field
}

// TelemetryRegion builds a telemetry-definition region.
func TelemetryRegion(defs []protocol.TelemetryDef) []byte {
	const defOffset = 32
	region := make([]byte, defOffset+(len(defs)+regionSlack)*protocol.TelemetryDefSize)
	binary.LittleEndian.PutUint32(region[0:], protocol.TelemetryDefinitionSHMVersion)
	binary.LittleEndian.PutUint32(region[4:], StableRevision)
	binary.LittleEndian.PutUint32(region[8:], uint32(len(region)))
	binary.LittleEndian.PutUint32(region[12:], defOffset)
	binary.LittleEndian.PutUint32(region[16:], protocol.TelemetryDefSize)
	binary.LittleEndian.PutUint32(region[20:], uint32(len(defs)))
	for i, def := range defs {
		encodeTelemetryDef(region[defOffset+i*protocol.TelemetryDefSize:], def)
	}
	return region
}

// AppendTelemetryDefs publishes more telemetry definitions in place,
// count last.
func AppendTelemetryDefs(region []byte, defs []protocol.TelemetryDef) {
	const defOffset = 32
	count := binary.LittleEndian.Uint32(region[20:])
	for i, def := range defs {
		encodeTelemetryDef(region[defOffset+(int(count)+i)*protocol.TelemetryDefSize:], def)
	}
	binary.LittleEndian.PutUint32(region[20:], count+uint32(len(defs)))
}

func encodeTelemetryDef(dst []byte, def protocol.TelemetryDef) {
	binary.LittleEndian.PutUint16(dst[0:], def.ID)
	binary.LittleEndian.PutUint16(dst[2:], def.Flags)
	binary.LittleEndian.PutUint16(dst[4:], def.Type.Wire)
	binary.LittleEndian.PutUint16(dst[6:], def.Type.VariantData)
	binary.LittleEndian.PutUint32(dst[8:], def.AliasVariable)
	copy(dst[12:12+protocol.TelemetryNameSize], def.Name[:])
}

// TelemetryName converts a string to the fixed-size telemetry name field.
func TelemetryName(name string) (field [protocol.TelemetryNameSize]byte) {
	copy(field[:protocol.TelemetryNameSize-1], name)
	return field
}

// BSONRegion builds a BSON-carrying sub-blob (device info or sim data)
// holding one document.
func BSONRegion(revision uint32, doc []byte) []byte {
	const dataOffset = 24
	region := make([]byte, dataOffset+len(doc))
	binary.LittleEndian.PutUint32(region[0:], protocol.DeviceInfoSHMVersion)
	binary.LittleEndian.PutUint32(region[4:], revision)
	binary.LittleEndian.PutUint32(region[8:], uint32(len(region)))
	binary.LittleEndian.PutUint32(region[12:], dataOffset)
	binary.LittleEndian.PutUint32(region[16:], uint32(len(doc)))
	copy(region[dataOffset:], doc)
	return region
}

// ReplaceBSON swaps the document in a BSON region and sets its revision
// counter to revision. The region is regrown as needed.
func ReplaceBSON(region []byte, revision uint32, doc []byte) []byte {
	const dataOffset = 24
	region = region[:dataOffset]
	region = append(region, doc...)
	binary.LittleEndian.PutUint32(region[4:], revision)
	binary.LittleEndian.PutUint32(region[8:], uint32(len(region)))
	binary.LittleEndian.PutUint32(region[16:], uint32(len(doc)))
	return region
}
