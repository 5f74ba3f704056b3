// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package seqlock

import (
	"bytes"
	"encoding/binary"
	"sync/atomic"
	"testing"
	"unsafe"
)

// region builds a stable test region: version word, revision counter,
// then payload.
func region(rev uint32, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(buf[0:], 1)
	binary.LittleEndian.PutUint32(buf[4:], rev)
	copy(buf[8:], payload)
	return buf
}

func TestReadStable(t *testing.T) {
	buf := region(2, []byte{0xaa, 0xbb})

	var seen []byte
	rev, ok := Read(buf, func(rev uint32) bool {
		seen = bytes.Clone(buf[8:])
		return true
	})
	if !ok {
		t.Fatal("Read of stable region failed")
	}
	if rev != 2 {
		t.Errorf("rev = %d, want 2", rev)
	}
	if !bytes.Equal(seen, []byte{0xaa, 0xbb}) {
		t.Errorf("payload = %x", seen)
	}
}

func TestReadRejectsOddCounter(t *testing.T) {
	buf := region(3, nil)
	if _, ok := Read(buf, func(uint32) bool { return true }); ok {
		t.Error("Read succeeded with odd revision counter")
	}
}

func TestReadRejectsNeverWritten(t *testing.T) {
	buf := region(0, nil)
	if _, ok := Read(buf, func(uint32) bool { return true }); ok {
		t.Error("Read succeeded with revision counter 0")
	}
}

func TestReadDetectsTornWindow(t *testing.T) {
	buf := region(2, []byte{1})

	// Every window observes the counter changing underneath it.
	calls := 0
	_, ok := Read(buf, func(uint32) bool {
		calls++
		current := atomic.LoadUint32((*uint32)(unsafe.Pointer(&buf[4])))
		atomic.StoreUint32((*uint32)(unsafe.Pointer(&buf[4])), current+2)
		return true
	})
	if ok {
		t.Error("Read succeeded although every window was torn")
	}
	if calls != MaxAttempts {
		t.Errorf("fn called %d times, want %d", calls, MaxAttempts)
	}
}

func TestReadRejectionIsNotRetried(t *testing.T) {
	buf := region(2, nil)

	calls := 0
	_, ok := Read(buf, func(uint32) bool {
		calls++
		return false
	})
	if ok {
		t.Error("Read succeeded although fn rejected the data")
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestReadObservedRevisionMatchesReRead(t *testing.T) {
	buf := region(42, []byte{9, 9, 9, 9})

	rev, ok := Read(buf, func(rev uint32) bool { return true })
	if !ok {
		t.Fatal("Read failed")
	}
	if after := LoadUint32(buf, CounterOffset); after != rev {
		t.Errorf("revision after copy = %d, want %d", after, rev)
	}
}

func TestCopyArray(t *testing.T) {
	value := make([]byte, 8+4)
	binary.LittleEndian.PutUint64(value[0:], 4)
	copy(value[8:], []byte{1, 2, 3, 4})

	dst := make([]byte, 4)
	if !CopyArray(value, dst) {
		t.Fatal("CopyArray of stable value failed")
	}
	if !bytes.Equal(dst, []byte{1, 2, 3, 4}) {
		t.Errorf("dst = %x", dst)
	}
}

func TestCopyArrayRejectsWriterInProgress(t *testing.T) {
	value := make([]byte, 8+4)
	binary.LittleEndian.PutUint64(value[0:], 5)

	dst := make([]byte, 4)
	if CopyArray(value, dst) {
		t.Error("CopyArray succeeded with odd counter")
	}
}
