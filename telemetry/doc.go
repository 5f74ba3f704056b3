// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry pushes simulator telemetry to the backend through
// update groups.
//
// The backend publishes the telemetry it understands as an append-only
// definition table in shared memory; each entry names a value and its
// type. A client declares local cells for the values it produces, bundles
// them into a Group, and configures the group against the current
// definition snapshot. Configuration resolves each cell to a definition
// id, orders the cells into a size-minimized wire layout, and registers
// the layout with the backend. After that, Send packs the current cell
// values into a single action datagram; the packing plan is fixed until
// the group is reconfigured.
//
// Cells whose name or type match no definition are skipped rather than
// rejected: a sim can declare everything it knows and gracefully degrade
// on backends that understand less.
package telemetry
