// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/riglink-foundation/riglink/action"
	"github.com/riglink-foundation/riglink/protocol"
)

// sizeBucket orders cells by the storage size of their base type. The
// wire layout packs buckets in this order: bools (bit-packed), 8-byte,
// 4-byte, 2-byte, then 1-byte values, which keeps every value naturally
// aligned without padding between entries.
func sizeBucket(base protocol.BaseType) int {
	switch base {
	case protocol.BaseBool:
		return 0
	case protocol.BaseI64, protocol.BaseF64:
		return 1
	case protocol.BaseI32, protocol.BaseU32, protocol.BaseF32:
		return 2
	case protocol.BaseI16, protocol.BaseU16:
		return 3
	case protocol.BaseI8, protocol.BaseU8:
		return 4
	default:
		return -1
	}
}

// registerHeaderSize is the fixed prefix of a register-group payload:
// group id, entry count, expected set-payload size.
const registerHeaderSize = 6

// setHeaderSize is the fixed prefix of a set-group payload: group id
// plus alignment padding.
const setHeaderSize = 4

// Group is one telemetry update group: a client-chosen bundle of cells
// registered with the backend under a group id and then sent repeatedly
// as a single packed action.
//
// A Group is not safe for concurrent use; the simulator thread that
// fills the cells drives it.
type Group struct {
	id      uint16
	builder *action.Builder

	cells    []Telemetry
	prepared bool

	// Packing plan established by Configure.
	packed         []Telemetry
	bucketCounts   [5]int
	setPayloadSize int
}

// NewGroup creates a group with a session-unique id chosen by the
// caller. transport is the session's action transport.
func NewGroup(id uint16, transport action.Transport) *Group {
	return &Group{id: id, builder: action.NewBuilder(transport)}
}

// ID returns the group id.
func (g *Group) ID() uint16 { return g.id }

// Add appends cells to the group. The group must be reconfigured before
// the next send.
func (g *Group) Add(cells ...Telemetry) {
	g.prepared = false
	g.cells = append(g.cells, cells...)
}

// SetCells replaces the group's cells. The group must be reconfigured
// before the next send.
func (g *Group) SetCells(cells []Telemetry) {
	g.prepared = false
	g.cells = append(g.cells[:0], cells...)
}

// Configure resolves the group's cells against a definition snapshot,
// fixes the packed wire layout, and registers the group with the
// backend, blocking until the registration datagram is out. Cells with
// no matching definition are left unresolved and skipped in the layout.
func (g *Group) Configure(defs Definitions) error {
	if len(g.cells) == 0 {
		return fmt.Errorf("telemetry: group %d has no cells", g.id)
	}
	g.prepared = false

	for _, t := range g.cells {
		ref := t.binding()
		if def := defs.FindTyped(t.Name(), t.Type()); def != nil {
			ref.id = def.ID
			ref.flags = def.Flags
		} else {
			ref.id = 0
			ref.flags = 0
		}
	}

	sort.SliceStable(g.cells, func(i, j int) bool {
		a, b := g.cells[i], g.cells[j]
		aBucket, bBucket := sizeBucket(a.Type().Base()), sizeBucket(b.Type().Base())
		if aBucket != bBucket {
			return aBucket < bBucket
		}
		return a.binding().id < b.binding().id
	})

	// Deduplicate by resolved id; unresolved cells are kept (they are
	// harmless) but contribute nothing to the layout.
	deduped := g.cells[:0]
	var lastID uint16
	for _, t := range g.cells {
		id := t.binding().id
		if id != 0 && id == lastID {
			continue
		}
		lastID = id
		deduped = append(deduped, t)
	}
	g.cells = deduped

	g.packed = g.packed[:0]
	for i := range g.bucketCounts {
		g.bucketCounts[i] = 0
	}
	for _, t := range g.cells {
		if t.binding().id == 0 {
			continue
		}
		g.packed = append(g.packed, t)
		g.bucketCounts[sizeBucket(t.Type().Base())]++
	}

	// Bools pack into 32-bit words; the bool region accounting folds in
	// the 4-byte set header and rounds the total to 8 bytes.
	expected := ((g.bucketCounts[0] + 63 + 32) / 64) * 8
	expected += g.bucketCounts[1] * 8
	expected += g.bucketCounts[2] * 4
	expected += g.bucketCounts[3] * 2
	expected += g.bucketCounts[4]
	if len(g.packed) == 0 {
		return fmt.Errorf("telemetry: group %d matched no definitions", g.id)
	}
	g.setPayloadSize = expected + setHeaderSize

	payload := g.builder.Start(protocol.ActionRegisterTelemetryGroup,
		registerHeaderSize+2*len(g.packed), 0)
	if payload == nil {
		return fmt.Errorf("telemetry: not registered to control")
	}
	binary.LittleEndian.PutUint16(payload[0:], g.id)
	binary.LittleEndian.PutUint16(payload[2:], uint16(len(g.packed)))
	binary.LittleEndian.PutUint16(payload[4:], uint16(expected))
	for i, t := range g.packed {
		binary.LittleEndian.PutUint16(payload[registerHeaderSize+2*i:], t.binding().id)
	}

	if status := g.builder.SendBlocking(); status != action.StatusComplete {
		return fmt.Errorf("telemetry: registering group %d: %v", g.id, status)
	}
	g.prepared = true
	return nil
}

// Send packs the current cell values in the layout fixed by Configure
// and sends them without blocking. The payload is point-in-time: it
// reflects the cells as they are at pack time.
func (g *Group) Send() action.Status {
	if !g.prepared {
		return action.StatusFailed
	}

	payload := g.builder.Start(protocol.ActionSetTelemetryGroup, g.setPayloadSize, 0)
	if payload == nil {
		return action.StatusFailed
	}

	binary.LittleEndian.PutUint16(payload[0:], g.id)
	payload[2] = 0
	payload[3] = 0

	next := 0
	at := setHeaderSize

	// Bool bucket: one bit per cell, 32 per word.
	boolCount := g.bucketCounts[0]
	var word uint32
	for bit := 0; bit < boolCount; bit++ {
		if g.packed[next].valueBytes()[0] != 0 {
			word |= 1 << (bit % 32)
		}
		next++
		if (bit+1)%32 == 0 {
			binary.LittleEndian.PutUint32(payload[at:], word)
			at += 4
			word = 0
		}
	}
	if boolCount%32 != 0 {
		binary.LittleEndian.PutUint32(payload[at:], word)
		at += 4
	}
	at = (at + 7) &^ 7

	for i := 0; i < g.bucketCounts[1]; i++ {
		copy(payload[at:at+8], g.packed[next].valueBytes()[:8])
		at += 8
		next++
	}
	for i := 0; i < g.bucketCounts[2]; i++ {
		copy(payload[at:at+4], g.packed[next].valueBytes()[:4])
		at += 4
		next++
	}
	for i := 0; i < g.bucketCounts[3]; i++ {
		copy(payload[at:at+2], g.packed[next].valueBytes()[:2])
		at += 2
		next++
	}
	for i := 0; i < g.bucketCounts[4]; i++ {
		payload[at] = g.packed[next].valueBytes()[0]
		at++
		next++
	}

	return g.builder.SendNonBlocking()
}

// Disable unregisters the group by sending an empty registration. The
// backend returns the group's telemetry to defaults. The group must be
// reconfigured before it can send again.
func (g *Group) Disable() action.Status {
	g.prepared = false

	payload := g.builder.Start(protocol.ActionRegisterTelemetryGroup, registerHeaderSize, 0)
	if payload == nil {
		return action.StatusFailed
	}
	binary.LittleEndian.PutUint16(payload[0:], g.id)
	binary.LittleEndian.PutUint16(payload[2:], 0)
	binary.LittleEndian.PutUint16(payload[4:], 0)
	return g.builder.SendBlocking()
}
