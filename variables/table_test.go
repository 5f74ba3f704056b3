// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package variables

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/riglink-foundation/riglink/internal/backendtest"
	"github.com/riglink-foundation/riglink/protocol"
)

// fixtureTable builds a table with a few typical definitions:
//
//	offset 0:  f32 "force_N" on device 1
//	offset 4:  bool "abs_active" global
//	offset 8:  f32x2 array "pedal_curve" on device 1 (8-byte counter first)
//	offset 32: u32 "status_bits" plus a bit alias "fault" (bit 3) on device 2
func fixtureTable(t *testing.T) (*Table, []byte) {
	t.Helper()

	values := make([]byte, 64)
	binary.LittleEndian.PutUint32(values[0:], math.Float32bits(6500))
	values[4] = 1
	binary.LittleEndian.PutUint64(values[8:], 2) // array counter, stable
	binary.LittleEndian.PutUint32(values[16:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(values[20:], math.Float32bits(0.75))
	binary.LittleEndian.PutUint32(values[32:], 0b1000)

	defs := []protocol.VariableDef{
		{
			Name:            backendtest.VarName("force_N"),
			Type:            protocol.ScalarType(protocol.BaseF32),
			Flags:           protocol.VarFlagStable,
			DeviceSessionID: 1,
			ValueOffset:     0,
		},
		{
			Name:        backendtest.VarName("abs_active"),
			Type:        protocol.ScalarType(protocol.BaseBool),
			ValueOffset: 4,
		},
		{
			Name:            backendtest.VarName("pedal_curve"),
			Type:            protocol.ArrayType(protocol.BaseF32, 2),
			DeviceSessionID: 1,
			ValueOffset:     8,
		},
		{
			Name:            backendtest.VarName("status_bits"),
			Type:            protocol.ScalarType(protocol.BaseU32),
			DeviceSessionID: 2,
			ValueOffset:     32,
		},
		{
			Name:            backendtest.VarName("fault"),
			Type:            protocol.BitType(protocol.BaseU32, 3),
			DeviceSessionID: 2,
			ValueOffset:     32,
		},
	}

	defsRegion, valuesRegion := backendtest.VariableRegions(defs, values)
	table, err := NewTable(defsRegion, valuesRegion)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table, defsRegion
}

func TestLookupAndRead(t *testing.T) {
	table, _ := fixtureTable(t)
	defs := table.Definitions(nil)

	if defs.Len() != 5 {
		t.Fatalf("Len = %d, want 5", defs.Len())
	}

	force := defs.FindTyped("force_N", protocol.ScalarType(protocol.BaseF32), 1)
	if force == nil {
		t.Fatal("force_N not found")
	}
	if got := force.Value().Float32(); got != 6500 {
		t.Errorf("force_N = %v, want 6500", got)
	}
	if force.Flags&protocol.VarFlagStable == 0 {
		t.Error("force_N lost its stable flag")
	}

	abs := defs.Find("abs_active", protocol.NoDevice)
	if abs == nil || !abs.Value().Bool() {
		t.Error("abs_active should be found and true")
	}

	fault := defs.FindTyped("fault", protocol.BitType(protocol.BaseU32, 3), 2)
	if fault == nil || !fault.Value().Bool() {
		t.Error("fault bit 3 of 0b1000 should read true")
	}

	if defs.Find("force_N", 2) != nil {
		t.Error("force_N resolved in the wrong device scope")
	}
	if defs.FindTyped("force_N", protocol.ScalarType(protocol.BaseF64), 1) != nil {
		t.Error("force_N resolved with the wrong type")
	}
}

func TestArraySnapshot(t *testing.T) {
	table, _ := fixtureTable(t)
	defs := table.Definitions(nil)

	curve := defs.FindTyped("pedal_curve", protocol.ArrayType(protocol.BaseF32, 2), 1)
	if curve == nil {
		t.Fatal("pedal_curve not found")
	}

	buf := make([]byte, 8)
	if !curve.Value().CopyArray(buf) {
		t.Fatal("CopyArray failed on a stable array")
	}
	first := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:]))
	second := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))
	if first != 0.25 || second != 0.75 {
		t.Errorf("array = [%v %v], want [0.25 0.75]", first, second)
	}

	if curve.Value().CopyArray(make([]byte, 4)) {
		t.Error("CopyArray accepted a wrong-sized destination")
	}
}

func TestRefreshAppendsOnly(t *testing.T) {
	table, defsRegion := fixtureTable(t)

	before := table.Definitions(nil)
	if table.Refresh() {
		t.Error("Refresh with no new definitions reported a change")
	}

	backendtest.AppendVariableDefs(defsRegion, []protocol.VariableDef{{
		Name:            backendtest.VarName("travel_mm"),
		Type:            protocol.ScalarType(protocol.BaseF32),
		DeviceSessionID: 1,
		ValueOffset:     36,
	}})

	if !table.Refresh() {
		t.Fatal("Refresh did not report the appended definition")
	}

	after := table.Definitions(nil)
	if after.Len() != before.Len()+1 {
		t.Fatalf("Len = %d, want %d", after.Len(), before.Len()+1)
	}

	// The previously-observed prefix is unchanged, entry for entry.
	for i := 0; i < before.Len(); i++ {
		if before.At(i) != after.At(i) {
			t.Fatalf("definition %d moved between snapshots", i)
		}
	}

	// The old snapshot does not see the new entry; the new one does.
	if before.Find("travel_mm", 1) != nil {
		t.Error("old snapshot sees a definition published after it")
	}
	if after.Find("travel_mm", 1) == nil {
		t.Error("new snapshot does not see the appended definition")
	}
	if !table.Changed(before) {
		t.Error("Changed(before) = false after growth")
	}
	if table.Changed(after) {
		t.Error("Changed(after) = true with no further growth")
	}
}

func TestOutOfBoundsValueDropped(t *testing.T) {
	defs := []protocol.VariableDef{{
		Name:        backendtest.VarName("rogue"),
		Type:        protocol.ScalarType(protocol.BaseF64),
		ValueOffset: 60, // 8 bytes starting at 60 exceeds the 64-byte value block
	}}
	defsRegion, valuesRegion := backendtest.VariableRegions(defs, make([]byte, 64))

	table, err := NewTable(defsRegion, valuesRegion)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if got := table.Definitions(nil).Len(); got != 0 {
		t.Errorf("out-of-bounds definition was kept (Len = %d)", got)
	}
}

func TestCStringValue(t *testing.T) {
	values := make([]byte, 32)
	binary.LittleEndian.PutUint64(values[0:], 2)
	copy(values[8:], "GT3\x00")

	defs := []protocol.VariableDef{{
		Name:        backendtest.VarName("vehicle_class"),
		Type:        protocol.ArrayType(protocol.BaseCString, 16),
		ValueOffset: 0,
	}}
	defsRegion, valuesRegion := backendtest.VariableRegions(defs, values)
	table, err := NewTable(defsRegion, valuesRegion)
	if err != nil {
		t.Fatal(err)
	}

	def := table.Definitions(nil).Find("vehicle_class", protocol.NoDevice)
	if def == nil {
		t.Fatal("vehicle_class not found")
	}
	if got := def.Value().String(); got != "GT3" {
		t.Errorf("String = %q, want GT3", got)
	}
}
