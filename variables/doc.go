// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package variables gives typed access to the backend's shared-memory
// variables: the main channel for state flowing from the backend and its
// devices to API clients.
//
// Definitions are published append-only for the lifetime of a session:
// new devices add definitions, but published entries never change and
// never move. The Table copies each definition out of shared memory once
// (into chunked storage, so definition pointers stay stable) and keeps a
// sorted index for lookup by device and name.
//
// Values are not copied. A Value is a live view into the shared region;
// 4- and 8-byte scalar reads go through atomic loads (value offsets are
// aligned for that), 1- and 2-byte scalars are read byte by byte, and
// array reads run the 8-byte-counter seqlock protocol. Value
// views stay valid exactly as long as the session that produced them;
// holders keep the session alive through the Definitions snapshot.
package variables
