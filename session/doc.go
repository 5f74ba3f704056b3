// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package session is the heart of the riglink client runtime: it finds
// the backend through the shared-memory rendezvous, attaches to the
// per-session regions and sockets, and carries the three traffic classes
// of the protocol: bulk shared-memory snapshots, request/reply commands
// over the reliable stream, and tight-deadline actions over the datagram
// socket.
//
// Open performs the rendezvous and returns a Session in the
// ConnectedMonitor state, able to observe devices, variables, telemetry
// definitions, and sim data. RegisterToControl upgrades the session to
// ConnectedControl, which assigns a controller id and unlocks commands
// and actions. A session that loses its backend (keep-alive stalls, the
// stream drops, or the descriptor changes) transitions to SessionLost
// and stays there until closed; reconnection means opening a new
// session, which the api package automates.
//
// The session services its keep-alive supervision, definition refresh,
// and stream demultiplexing on internal goroutines. External threads may
// safely call every exported method; command callbacks run on the
// receive goroutine and must not block.
package session
