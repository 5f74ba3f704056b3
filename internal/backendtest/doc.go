// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package backendtest fabricates the backend's side of the protocol for
// tests: shared-memory regions with valid headers and revision counters,
// session descriptors with sub-blob tables and key offers, and a small
// in-process backend that accepts registrations over TCP and actions
// over UDP.
//
// Production code never imports this package.
package backendtest
