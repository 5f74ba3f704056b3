// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultDir is where named shared-memory regions live on Linux.
const DefaultDir = "/dev/shm"

// ErrNotAvailable reports that the named region does not exist. This is
// transient: the backend may not be running, or may not have published
// the region yet.
var ErrNotAvailable = errors.New("shm: region not available")

// Opener resolves region names to mappings. The zero value maps names
// under DefaultDir.
type Opener struct {
	// Dir overrides the shared-memory directory. Empty means DefaultDir.
	Dir string
}

// Open maps the named region read-only. The whole file is mapped; the
// region's own headers state how much of it is meaningful.
func (o *Opener) Open(name string) (*Mapping, error) {
	dir := o.Dir
	if dir == "" {
		dir = DefaultDir
	}
	return openPath(filepath.Join(dir, name))
}

// openPath maps the file at path read-only.
func openPath(path string) (*Mapping, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotAvailable, path)
		}
		return nil, fmt.Errorf("shm: opening %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("shm: stat %s: %w", path, err)
	}
	size := info.Size()
	if size <= 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNotAvailable, path)
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	return &Mapping{data: data}, nil
}

// Mapping is a read-only view of one shared-memory region. The backing
// bytes belong to another process: they can change at any instant, and
// consistency must come from the seqlock protocol, not from this type.
//
// Close is idempotent and safe for concurrent use; Bytes must not be used
// after Close returns.
type Mapping struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// Bytes returns the mapped region. The slice aliases live shared memory.
func (m *Mapping) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	return m.data
}

// Size returns the mapped length in bytes, or 0 after Close.
func (m *Mapping) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0
	}
	return len(m.data)
}

// Close unmaps the region. Calling Close more than once is a no-op.
func (m *Mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	data := m.data
	m.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("shm: munmap: %w", err)
	}
	return nil
}
