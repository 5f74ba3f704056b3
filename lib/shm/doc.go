// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package shm maps named shared-memory regions published by the device
// backend. The client side only ever maps read-only: the backend is the
// single writer of every region, and readers get consistency through the
// revision-counter protocol in lib/seqlock, never through a lock.
//
// Regions are resolved by name under the shared-memory directory
// (/dev/shm by default; tests point an Opener at a temp dir). A name that
// does not exist is a transient condition (the backend may simply not
// be running yet) and is reported as ErrNotAvailable.
package shm
