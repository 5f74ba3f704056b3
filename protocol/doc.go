// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the wire-level contract between the riglink
// client runtime and the device backend: the shared-memory rendezvous
// layouts, the sub-blob headers, the variable and telemetry definition
// records, the datagram action framing, and the command response codes.
//
// Everything in this package is little-endian and bit-exact. The structs
// mirror the backend's C layouts field for field; parsers validate that
// every offset and size stays inside the buffer they were handed, because
// the backing bytes come from shared memory that another process owns.
//
// The package is parse-only from the client's point of view. Append
// helpers for the same layouts live in internal/backendtest and exist so
// tests can stand in for the backend.
package protocol
