// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"sync"

	"github.com/riglink-foundation/riglink/deviceinfo"
	"github.com/riglink-foundation/riglink/lib/codec"
	"github.com/riglink-foundation/riglink/lib/seqlock"
	"github.com/riglink-foundation/riglink/protocol"
	"github.com/riglink-foundation/riglink/simdata"
)

// updateResult is the outcome of a provider refresh.
type updateResult int

const (
	// updNew: the shared blob changed and a new snapshot was cached.
	updNew updateResult = iota

	// updNoChange: the revision counter matched the cached snapshot.
	updNoChange

	// updFailed: the blob could not be read consistently or failed
	// validation. The previous snapshot stays available.
	updFailed
)

// bsonProvider keeps the latest validated snapshot of one BSON-carrying
// sub-blob (device info or sim data). Safe for concurrent use.
type bsonProvider struct {
	region  []byte
	version uint32

	mu       sync.RWMutex
	buf      []byte
	revision uint32
}

func newBSONProvider(region []byte, version uint32) *bsonProvider {
	return &bsonProvider{region: region, version: version}
}

// update snapshots the blob if its revision moved, validates the BSON
// structurally, and atomically replaces the cached buffer.
func (p *bsonProvider) update() updateResult {
	p.mu.RLock()
	prevRevision := p.revision
	p.mu.RUnlock()

	var newBuf []byte
	var newRevision uint32
	noChange := false

	_, ok := seqlock.Read(p.region, func(rev uint32) bool {
		if rev == prevRevision && prevRevision != 0 {
			noChange = true
			return true
		}
		header, err := protocol.ParseSubBlobHeader(p.region)
		if err != nil || !protocol.VersionCompatible(p.version, header.Version) {
			return false
		}
		if int(header.Size) > len(p.region) {
			// The header claims more than we mapped.
			return false
		}
		body, err := protocol.ParseBSONBlobBody(p.region)
		if err != nil {
			return false
		}
		if uint64(body.DataOffset)+uint64(body.DataSize) > uint64(header.Size) {
			return false
		}
		newBuf = bytes.Clone(p.region[body.DataOffset : body.DataOffset+body.DataSize])
		newRevision = rev
		return true
	})

	if !ok {
		return updFailed
	}
	if noChange {
		return updNoChange
	}
	if err := codec.Validate(newBuf); err != nil {
		return updFailed
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.revision != prevRevision {
		// Another thread refreshed while we validated; its snapshot is
		// as new as ours or newer, so keep it.
		return updNew
	}
	p.buf = newBuf
	p.revision = newRevision
	return updNew
}

// snapshot returns the cached buffer and its revision.
func (p *bsonProvider) snapshot() ([]byte, uint32) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.buf, p.revision
}

// deviceInfoProvider adds a lazy parse cache on top of the raw provider.
type deviceInfoProvider struct {
	bsonProvider

	parseMu sync.Mutex
	parsed  *deviceinfo.FullInfo
}

func newDeviceInfoProvider(region []byte) *deviceInfoProvider {
	return &deviceInfoProvider{
		bsonProvider: bsonProvider{region: region, version: protocol.DeviceInfoSHMVersion},
	}
}

// parse returns the parsed FullInfo for the current snapshot, reusing
// the cached parse while the revision is unchanged.
func (p *deviceInfoProvider) parse() *deviceinfo.FullInfo {
	buf, revision := p.snapshot()
	if buf == nil {
		return nil
	}

	p.parseMu.Lock()
	defer p.parseMu.Unlock()
	if p.parsed != nil && p.parsed.Revision() == revision {
		return p.parsed
	}
	info, err := deviceinfo.Parse(buf, revision)
	if err != nil {
		// Validation passed but the structure surprised the parser;
		// treat it like an absent snapshot rather than failing reads.
		return p.parsed
	}
	p.parsed = info
	return info
}

// simDataProvider adds a lazy parse cache for sim data.
type simDataProvider struct {
	bsonProvider

	parseMu sync.Mutex
	parsed  *simdata.SimData
}

func newSimDataProvider(region []byte) *simDataProvider {
	return &simDataProvider{
		bsonProvider: bsonProvider{region: region, version: protocol.SimDataSHMVersion},
	}
}

func (p *simDataProvider) parse() *simdata.SimData {
	buf, revision := p.snapshot()
	if buf == nil {
		return nil
	}

	p.parseMu.Lock()
	defer p.parseMu.Unlock()
	if p.parsed != nil && p.parsed.Revision() == revision {
		return p.parsed
	}
	data, err := simdata.Parse(buf, revision)
	if err != nil {
		return p.parsed
	}
	p.parsed = data
	return data
}
