// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package seqlock reads consistent snapshots out of shared memory that
// another process keeps writing.
//
// The cross-process protocol is a classic seqlock. The writer increments
// a revision counter before it starts modifying the data and again when
// it finishes, so the counter is odd exactly while a write is in
// progress. A reader observes a consistent snapshot if and only if the
// counter was even and at least 2 (the region has been written at least
// once) before the copy and has the same value after it.
//
// A mutex cannot substitute for this protocol: the writer is a different
// process and takes no lock. The counter loads go through sync/atomic so
// the copy cannot be reordered around them.
package seqlock
