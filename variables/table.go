// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package variables

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/riglink-foundation/riglink/lib/seqlock"
	"github.com/riglink-foundation/riglink/protocol"
)

// Storage geometry for definition copies: fixed-capacity chunks keep
// every *Definition address stable while the table grows, so lookups can
// hand out pointers without a lock around every later access.
const (
	defsPerChunk = 1024
	maxChunks    = 32
)

// variableCountOffset is where the definition count lives inside the
// variable-header sub-blob. The count only ever grows; the backend
// sequences its store so all definition records below the count are
// fully written first.
const variableCountOffset = 20

// Definition is one copied variable definition. The copy guarantees a
// NUL-terminated name and a bounds-checked value location even if the
// shared region is corrupted later.
type Definition struct {
	Name            string
	Type            protocol.Type
	Flags           uint32
	DeviceSessionID protocol.DeviceSessionID

	value Value
	seq   int
}

// Value returns the live view of this variable's storage.
func (d *Definition) Value() Value { return d.value }

// Table maintains the copied definition set for one session. All methods
// are safe for concurrent use; Refresh is typically driven by the
// session's periodic tick.
type Table struct {
	defsRegion []byte
	defsStart  int
	defSize    int
	maxDefs    int

	valuesRegion []byte
	valuesStart  int
	valuesSize   int

	mu    sync.RWMutex
	store *chunkStore
}

type chunkStore struct {
	// chunks are fixed arrays, not slices: a snapshot reads entries
	// below its count while Refresh fills later slots, and an array
	// write never touches the header a concurrent reader is indexing
	// through.
	chunks    [maxChunks]*[defsPerChunk]Definition
	count     int
	processed int

	// index holds every accepted definition sorted by (device, name)
	// for binary search. Multiple entries may share a key when the
	// backend republishes a name with a different type. Refresh
	// replaces the slice wholesale so snapshots can keep reading the
	// version they captured without locking.
	index []*Definition
}

// NewTable parses the variable header and data sub-blob layouts and
// copies the definitions already published. Returns a protocol error
// when the layouts reference memory outside their regions.
func NewTable(defsRegion, valuesRegion []byte) (*Table, error) {
	header, err := protocol.ParseVariableHeaderBlock(defsRegion)
	if err != nil {
		return nil, err
	}
	data, err := protocol.ParseVariableDataBlock(valuesRegion)
	if err != nil {
		return nil, err
	}

	if header.DefSize < protocol.VariableDefSize || int(header.DefOffset) >= len(defsRegion) {
		return nil, fmt.Errorf("variables: definition layout out of bounds (offset=%d size=%d)",
			header.DefOffset, header.DefSize)
	}
	if int(data.DataOffset) >= len(valuesRegion) {
		return nil, fmt.Errorf("variables: value data offset %d outside region", data.DataOffset)
	}

	t := &Table{
		defsRegion:   defsRegion,
		defsStart:    int(header.DefOffset),
		defSize:      int(header.DefSize),
		valuesRegion: valuesRegion,
		valuesStart:  int(data.DataOffset),
		store:        &chunkStore{},
	}
	t.maxDefs = (len(defsRegion) - t.defsStart) / t.defSize
	if t.maxDefs > defsPerChunk*maxChunks {
		t.maxDefs = defsPerChunk * maxChunks
	}
	t.valuesSize = len(valuesRegion) - t.valuesStart

	t.Refresh()
	return t, nil
}

// Refresh copies any definitions published since the last call. Reports
// whether new definitions appeared.
func (t *Table) Refresh() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := int(seqlock.LoadUint32(t.defsRegion, variableCountOffset))
	if count > t.maxDefs {
		count = t.maxDefs
	}
	if count <= t.store.processed {
		return false
	}

	added := make([]*Definition, 0, count-t.store.processed)
	for i := t.store.processed; i < count; i++ {
		record := t.defsRegion[t.defsStart+i*t.defSize:]
		def, err := protocol.ParseVariableDef(record)
		t.store.processed++
		if err != nil {
			continue
		}
		if copied := t.append(def); copied != nil {
			added = append(added, copied)
		}
	}

	if len(added) > 0 {
		index := make([]*Definition, len(t.store.index), len(t.store.index)+len(added))
		copy(index, t.store.index)
		for _, def := range added {
			at := sort.Search(len(index), func(i int) bool {
				return !indexLess(index[i], def.DeviceSessionID, def.Name)
			})
			index = append(index, nil)
			copy(index[at+1:], index[at:])
			index[at] = def
		}
		t.store.index = index
	}
	return true
}

// append copies one record into chunked storage. Records whose value
// storage falls outside the value region are dropped: they cannot be
// read safely no matter what the backend claims.
func (t *Table) append(def protocol.VariableDef) *Definition {
	size := def.Type.ValueSize()
	if size == 0 {
		return nil
	}
	need := int64(def.ValueOffset) + int64(size)
	if def.Type.IsArray() {
		need += 8 // array revision counter precedes the elements
	}
	if need > int64(t.valuesSize) {
		return nil
	}

	chunk := t.store.count / defsPerChunk
	if chunk >= maxChunks {
		return nil
	}
	if t.store.chunks[chunk] == nil {
		t.store.chunks[chunk] = new([defsPerChunk]Definition)
	}

	name := def.Name[:]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	} else {
		name = name[:len(name)-1]
	}

	copied := &t.store.chunks[chunk][t.store.count%defsPerChunk]
	*copied = Definition{
		Name:            string(name),
		Type:            def.Type,
		Flags:           def.Flags,
		DeviceSessionID: def.DeviceSessionID,
		value: Value{
			region: t.valuesRegion,
			offset: t.valuesStart + int(def.ValueOffset),
			typ:    def.Type,
		},
		seq: t.store.count,
	}
	t.store.count++
	return copied
}

// indexLess orders index entries by (device session id, name).
func indexLess(d *Definition, device protocol.DeviceSessionID, name string) bool {
	if d.DeviceSessionID != device {
		return d.DeviceSessionID < device
	}
	return d.Name < name
}

// Definitions returns a point-in-time snapshot. owner is whatever must
// stay reachable for the value views to stay valid; the session hands
// itself in, so a held snapshot pins the session and its mappings.
func (t *Table) Definitions(owner any) Definitions {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Definitions{store: t.store, index: t.store.index, count: t.store.count, owner: owner}
}

// Changed reports whether the table has grown past the snapshot.
func (t *Table) Changed(d Definitions) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.store != d.store || t.store.count != d.count
}

// Definitions is an immutable snapshot of the definition set. Later
// snapshots extend earlier ones: the first Len() entries are identical.
type Definitions struct {
	store *chunkStore
	index []*Definition
	count int
	owner any
}

// Len returns the number of definitions in the snapshot.
func (d Definitions) Len() int { return d.count }

// At returns the definition at index i, in publication order.
func (d Definitions) At(i int) *Definition {
	if i < 0 || i >= d.count {
		return nil
	}
	return &d.store.chunks[i/defsPerChunk][i%defsPerChunk]
}

// Find returns the definition with the given name in the device's scope,
// regardless of type, or nil.
func (d Definitions) Find(name string, device protocol.DeviceSessionID) *Definition {
	return d.find(name, device, func(*Definition) bool { return true })
}

// FindTyped returns the definition matching name, type, and device
// scope, or nil. Use this when the value will be read through a typed
// accessor.
func (d Definitions) FindTyped(name string, typ protocol.Type, device protocol.DeviceSessionID) *Definition {
	return d.find(name, device, func(def *Definition) bool { return def.Type == typ })
}

// Value looks up a typed definition and returns its live value view.
func (d Definitions) Value(name string, typ protocol.Type, device protocol.DeviceSessionID) (Value, bool) {
	def := d.FindTyped(name, typ, device)
	if def == nil {
		return Value{}, false
	}
	return def.value, true
}

// find binary-searches the shared index, then scans the equal-key run
// for a match inside this snapshot.
func (d Definitions) find(name string, device protocol.DeviceSessionID, match func(*Definition) bool) *Definition {
	if d.store == nil {
		return nil
	}
	index := d.index
	at := sort.Search(len(index), func(i int) bool {
		return !indexLess(index[i], device, name)
	})
	for ; at < len(index); at++ {
		def := index[at]
		if def.DeviceSessionID != device || def.Name != name {
			break
		}
		if def.seq < d.count && match(def) {
			return def
		}
	}
	return nil
}
