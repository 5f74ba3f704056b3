// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol_test

import (
	"bytes"
	"testing"

	"github.com/riglink-foundation/riglink/internal/backendtest"
	"github.com/riglink-foundation/riglink/protocol"
)

func TestVersionCompatible(t *testing.T) {
	cases := []struct {
		known, observed uint32
		want            bool
	}{
		{0x00010000, 0x00010000, true},
		{0x00010000, 0x0001ffff, true},
		{0x00010000, 0x00020000, false},
		{0x00000001, 0x00000007, true},
	}
	for _, c := range cases {
		if got := protocol.VersionCompatible(c.known, c.observed); got != c.want {
			t.Errorf("VersionCompatible(%#x, %#x) = %v, want %v", c.known, c.observed, got, c.want)
		}
	}
}

func TestParseCore(t *testing.T) {
	region := backendtest.CoreRegion(backendtest.CoreParams{
		SessionID:      42,
		SessionSHMSize: 8192,
		State:          protocol.CoreActive,
		SessionPath:    "$riglink-session-42$",
	})

	core, err := protocol.ParseCore(region)
	if err != nil {
		t.Fatalf("ParseCore: %v", err)
	}
	if core.SessionID != 42 || core.State != protocol.CoreActive {
		t.Errorf("core = %+v", core)
	}
	if core.SessionSHMPath != "$riglink-session-42$" {
		t.Errorf("path = %q", core.SessionSHMPath)
	}
	if core.Version != protocol.CoreSHMVersion {
		t.Errorf("version = %#x", core.Version)
	}

	if _, err := protocol.ParseCore(region[:40]); err == nil {
		t.Error("ParseCore accepted a truncated region")
	}
}

func TestParseSessionDescriptor(t *testing.T) {
	refs := []protocol.SubBlobRef{
		{ID: protocol.DeviceInfoSHMID, Version: protocol.DeviceInfoSHMVersion, Size: 4096, Path: "$dev$"},
		{ID: protocol.VariableHeaderSHMID, Version: protocol.VariableHeaderSHMVersion, Size: 8192, Path: "$varh$"},
	}
	key := bytes.Repeat([]byte{0x11}, 32)
	sig := bytes.Repeat([]byte{0x22}, 64)
	region := backendtest.SessionRegion(backendtest.SessionParams{
		SessionID: 7,
		State:     protocol.SessionActive,
		TCPPort:   29001,
		UDPPort:   29002,
		SubBlobs:  refs,
		Offers: []backendtest.KeyOffer{
			{Method: protocol.SecurityMethodX25519AES128GCM, Key: key, Signature: sig},
		},
	})

	desc, err := protocol.ParseSessionDescriptor(region)
	if err != nil {
		t.Fatalf("ParseSessionDescriptor: %v", err)
	}
	if desc.SessionID != 7 || desc.State != protocol.SessionActive {
		t.Errorf("descriptor = id %d state %d", desc.SessionID, desc.State)
	}
	if desc.TCPPort != 29001 || desc.UDPPort != 29002 {
		t.Errorf("ports = %d/%d", desc.TCPPort, desc.UDPPort)
	}
	if desc.UDPMaxPlaintextPacketSize < protocol.MinPlaintextPacketSize {
		t.Errorf("plaintext limit = %d", desc.UDPMaxPlaintextPacketSize)
	}

	if len(desc.SubBlobs) != 2 {
		t.Fatalf("sub-blobs = %d", len(desc.SubBlobs))
	}
	if desc.SubBlobs[0].ID != protocol.DeviceInfoSHMID || desc.SubBlobs[0].Path != "$dev$" {
		t.Errorf("sub-blob[0] = %+v", desc.SubBlobs[0])
	}

	if len(desc.PublicKeyOffers) != 1 {
		t.Fatalf("offers = %d", len(desc.PublicKeyOffers))
	}
	offer := desc.PublicKeyOffers[0]
	if offer.Method != protocol.SecurityMethodX25519AES128GCM ||
		!bytes.Equal(offer.Key, key) || !bytes.Equal(offer.Signature, sig) {
		t.Errorf("offer = %+v", offer)
	}
}

func TestParseSessionDescriptorBoundsChecks(t *testing.T) {
	region := backendtest.SessionRegion(backendtest.SessionParams{
		SessionID: 1,
		SubBlobs: []protocol.SubBlobRef{
			{ID: 1, Version: 1, Size: 64, Path: "$x$"},
		},
	})

	// Announced data size smaller than the reference table needs.
	truncated := bytes.Clone(region)
	truncated[16] = byte(protocol.SessionDescriptorSize)
	truncated[17], truncated[18], truncated[19] = 0, 0, 0
	if _, err := protocol.ParseSessionDescriptor(truncated); err == nil {
		t.Error("descriptor with out-of-bounds reference table accepted")
	}

	// Announced size beyond the buffer.
	oversized := bytes.Clone(region)
	oversized[16] = 0xff
	oversized[17] = 0xff
	oversized[18] = 0xff
	oversized[19] = 0x7f
	if _, err := protocol.ParseSessionDescriptor(oversized); err == nil {
		t.Error("descriptor announcing an oversized data size accepted")
	}
}

func TestActionHeaderRoundTrip(t *testing.T) {
	header := protocol.ActionHeader{
		ControllerID: 3,
		Flags:        protocol.ActionFlagEncrypted,
		ActionID:     protocol.ActionFbEffect,
		Size:         52,
	}
	buf := make([]byte, protocol.ActionHeaderSize)
	protocol.PutActionHeader(buf, header)

	got, ok := protocol.ParseActionHeader(buf)
	if !ok || got != header {
		t.Errorf("round trip = %+v, %v", got, ok)
	}
	if _, ok := protocol.ParseActionHeader(buf[:4]); ok {
		t.Error("short header accepted")
	}
}

func TestTypeProperties(t *testing.T) {
	f32 := protocol.ScalarType(protocol.BaseF32)
	if !f32.IsScalar() || f32.ValueSize() != 4 || f32.String() != "f32" {
		t.Errorf("f32 = scalar %v size %d %q", f32.IsScalar(), f32.ValueSize(), f32)
	}

	arr := protocol.ArrayType(protocol.BaseU16, 8)
	if !arr.IsArray() || arr.ArrayLen() != 8 || arr.ValueSize() != 16 || arr.String() != "u16x8" {
		t.Errorf("array = %+v size %d %q", arr, arr.ValueSize(), arr)
	}

	bit := protocol.BitType(protocol.BaseU32, 5)
	if !bit.IsBit() || bit.BitIndex() != 5 || bit.ValueSize() != 4 || bit.String() != "u32.5" {
		t.Errorf("bit = %+v size %d %q", bit, bit.ValueSize(), bit)
	}

	if protocol.ScalarType(protocol.BaseInvalid).ValueSize() != 0 {
		t.Error("invalid type has nonzero size")
	}
}

func TestVariableDefParse(t *testing.T) {
	def := protocol.VariableDef{
		Flags:           protocol.VarFlagStable,
		Type:            protocol.ScalarType(protocol.BaseF32),
		ValueOffset:     128,
		DeviceSessionID: 3,
		Name:            backendtest.VarName("force_N"),
	}
	defsRegion, _ := backendtest.VariableRegions([]protocol.VariableDef{def}, make([]byte, 256))

	parsed, err := protocol.ParseVariableDef(defsRegion[32:])
	if err != nil {
		t.Fatalf("ParseVariableDef: %v", err)
	}
	if parsed != def {
		t.Errorf("parsed = %+v, want %+v", parsed, def)
	}
}

func TestResponseCodeNames(t *testing.T) {
	cases := map[protocol.ResponseCode]string{
		protocol.ResponseOK:            "ok",
		protocol.ResponseNoControl:     "no_control",
		protocol.ResponseIncompatible:  "incompatible",
		protocol.ResponseInternal:      "internal",
		protocol.ResponseCode(0x1234):  "unknown",
		protocol.ResponseNotRegistered: "not_registered",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", code, got, want)
		}
	}
}
