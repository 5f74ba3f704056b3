// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/riglink-foundation/riglink/lib/seqlock"
	"github.com/riglink-foundation/riglink/protocol"
)

// telemetryCountOffset is where the definition count lives inside the
// telemetry-definition sub-blob. The backend sequences the count store
// after the records, so every record below the count is fully written.
const telemetryCountOffset = 20

// Definition is one copied telemetry definition. The id refers to the
// entry in commands and group registrations; it is unique within the
// session but may change across sessions, so the name is the stable key.
type Definition struct {
	ID    uint16
	Name  string
	Type  protocol.Type
	Flags uint16

	// AliasVariable is the index of the variable mirroring this
	// telemetry's last pushed value, or protocol.NoAliasVariable.
	AliasVariable uint32
}

// Table lazily copies the telemetry definition table out of shared
// memory. Safe for concurrent use.
type Table struct {
	region    []byte
	defsStart int
	defSize   int
	maxDefs   int

	mu   sync.Mutex
	defs []Definition // copy-on-write: replaced, never mutated
}

// NewTable parses the telemetry-definition sub-blob layout and copies
// the definitions already published.
func NewTable(region []byte) (*Table, error) {
	block, err := protocol.ParseTelemetryDefBlock(region)
	if err != nil {
		return nil, err
	}
	if block.DefSize < protocol.TelemetryDefSize || int(block.DefOffset) >= len(region) {
		return nil, fmt.Errorf("telemetry: definition layout out of bounds (offset=%d size=%d)",
			block.DefOffset, block.DefSize)
	}

	t := &Table{
		region:    region,
		defsStart: int(block.DefOffset),
		defSize:   int(block.DefSize),
	}
	t.maxDefs = (len(region) - t.defsStart) / t.defSize
	t.Refresh()
	return t, nil
}

// Refresh copies definitions published since the last call. Reports
// whether new ones appeared.
func (t *Table) Refresh() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := int(seqlock.LoadUint32(t.region, telemetryCountOffset))
	if count > t.maxDefs {
		count = t.maxDefs
	}
	if count <= len(t.defs) {
		return false
	}

	defs := make([]Definition, len(t.defs), count)
	copy(defs, t.defs)
	for i := len(t.defs); i < count; i++ {
		record := t.region[t.defsStart+i*t.defSize:]
		def, err := protocol.ParseTelemetryDef(record)
		if err != nil {
			continue
		}
		name := def.Name[:]
		if at := bytes.IndexByte(name, 0); at >= 0 {
			name = name[:at]
		} else {
			name = name[:len(name)-1]
		}
		defs = append(defs, Definition{
			ID:            def.ID,
			Name:          string(name),
			Type:          def.Type,
			Flags:         def.Flags,
			AliasVariable: def.AliasVariable,
		})
	}
	t.defs = defs
	return true
}

// Definitions returns a point-in-time snapshot. owner is whatever must
// stay alive while the snapshot is used, normally the session.
func (t *Table) Definitions(owner any) Definitions {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Definitions{defs: t.defs, owner: owner}
}

// Definitions is an immutable snapshot of the telemetry definition set.
type Definitions struct {
	defs  []Definition
	owner any
}

// Len returns the number of definitions.
func (d Definitions) Len() int { return len(d.defs) }

// At returns the definition at index i in publication order.
func (d Definitions) At(i int) *Definition { return &d.defs[i] }

// Find returns the first definition with the given name, or nil.
func (d Definitions) Find(name string) *Definition {
	for i := range d.defs {
		if d.defs[i].Name == name {
			return &d.defs[i]
		}
	}
	return nil
}

// FindTyped returns the definition matching both name and type, or nil.
func (d Definitions) FindTyped(name string, typ protocol.Type) *Definition {
	for i := range d.defs {
		if d.defs[i].Name == name && d.defs[i].Type == typ {
			return &d.defs[i]
		}
	}
	return nil
}

// ByID returns the definition with the given id, or nil.
func (d Definitions) ByID(id uint16) *Definition {
	for i := range d.defs {
		if d.defs[i].ID == id {
			return &d.defs[i]
		}
	}
	return nil
}
