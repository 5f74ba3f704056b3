// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"testing"

	"github.com/riglink-foundation/riglink/internal/backendtest"
	"github.com/riglink-foundation/riglink/protocol"
)

func TestProviderUpdateAndNoChange(t *testing.T) {
	doc := backendtest.MarshalDoc(backendtest.D{{Key: "k", Value: "v"}})
	region := backendtest.BSONRegion(2, doc)

	provider := newBSONProvider(region, protocol.DeviceInfoSHMVersion)
	if got := provider.update(); got != updNew {
		t.Fatalf("first update = %v, want updNew", got)
	}
	buf, revision := provider.snapshot()
	if !bytes.Equal(buf, doc) || revision != 2 {
		t.Errorf("snapshot = %d bytes rev %d", len(buf), revision)
	}

	// Unchanged blob: NoChange, and the cached buffer is the same
	// allocation (no copy happened).
	if got := provider.update(); got != updNoChange {
		t.Errorf("second update = %v, want updNoChange", got)
	}
	buf2, _ := provider.snapshot()
	if &buf[0] != &buf2[0] {
		t.Error("NoChange update replaced the cached buffer")
	}
}

func TestProviderPicksUpNewRevision(t *testing.T) {
	doc := backendtest.MarshalDoc(backendtest.D{{Key: "n", Value: int32(1)}})
	region := backendtest.BSONRegion(2, doc)
	provider := newBSONProvider(region, protocol.DeviceInfoSHMVersion)
	provider.update()

	next := backendtest.MarshalDoc(backendtest.D{{Key: "n", Value: int32(2)}})
	updated := backendtest.ReplaceBSON(region, 4, next)
	copy(region, updated) // same length: splice in place

	if got := provider.update(); got != updNew {
		t.Fatalf("update after change = %v", got)
	}
	if _, revision := provider.snapshot(); revision != 4 {
		t.Errorf("revision = %d, want 4", revision)
	}
}

func TestProviderRejectsWriterInProgress(t *testing.T) {
	doc := backendtest.MarshalDoc(backendtest.D{{Key: "k", Value: "v"}})
	region := backendtest.BSONRegion(3, doc) // odd revision: mid-write

	provider := newBSONProvider(region, protocol.DeviceInfoSHMVersion)
	if got := provider.update(); got != updFailed {
		t.Errorf("update = %v, want updFailed", got)
	}
}

func TestProviderKeepsSnapshotOnInvalidData(t *testing.T) {
	doc := backendtest.MarshalDoc(backendtest.D{{Key: "k", Value: "v"}})
	region := backendtest.BSONRegion(2, doc)
	provider := newBSONProvider(region, protocol.DeviceInfoSHMVersion)
	provider.update()

	// Corrupt the document in place and bump the revision: validation
	// fails, update reports failure, previous snapshot survives.
	region[24] = 0xff
	backendtest.SetRevision(region, 4)

	if got := provider.update(); got != updFailed {
		t.Errorf("update = %v, want updFailed", got)
	}
	buf, revision := provider.snapshot()
	if revision != 2 || !bytes.Equal(buf, doc) {
		t.Error("failed update disturbed the cached snapshot")
	}
}

func TestProviderRejectsIncompatibleVersion(t *testing.T) {
	doc := backendtest.MarshalDoc(backendtest.D{{Key: "k", Value: "v"}})
	region := backendtest.BSONRegion(2, doc)
	region[0] = 0
	region[1] = 0
	region[2] = 2 // version 0x00020000

	provider := newBSONProvider(region, protocol.DeviceInfoSHMVersion)
	if got := provider.update(); got != updFailed {
		t.Errorf("update = %v, want updFailed", got)
	}
}

func TestDeviceInfoParseCaching(t *testing.T) {
	doc := backendtest.DeviceInfoDoc(backendtest.DeviceDoc(1, "wb", "wheelbase", true))
	region := backendtest.BSONRegion(2, doc)

	provider := newDeviceInfoProvider(region)
	provider.update()

	first := provider.parse()
	second := provider.parse()
	if first == nil || first != second {
		t.Error("unchanged revision should return the cached parse")
	}

	next := backendtest.DeviceInfoDoc(backendtest.DeviceDoc(1, "wb", "wheelbase", false))
	updated := backendtest.ReplaceBSON(region, 4, next)
	copy(region, updated)
	provider.update()

	third := provider.parse()
	if third == first {
		t.Error("revision change should invalidate the parse cache")
	}
	if third.ByUID("wb").Connected {
		t.Error("new parse did not reflect the updated document")
	}
}
