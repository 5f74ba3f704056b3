// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package deviceinfo models the devices the backend publishes through
// the device-info shared-memory blob: wheelbases, pedals, shifters, and
// everything else attached to the rig.
//
// FullInfo is a parsed snapshot. It owns the raw BSON it was parsed
// from and the device array inside it; a Device handle borrows liveness
// from its FullInfo, so holding any device keeps the whole snapshot
// reachable. Snapshots are immutable; when the backend publishes new
// device info the session parses a fresh FullInfo and consumers remap
// their device session ids, which are only stable within one session.
//
// Enumerations (roles, control types, feedback types) travel as strings
// on the wire because their numeric values change between backend
// releases. Unknown strings map to the Other member instead of failing,
// so new backend devices degrade gracefully on old clients.
package deviceinfo
