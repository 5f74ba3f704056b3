// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package api wraps the session lifecycle in a background runner: it
// opens a session when a backend appears, drives it until it is lost,
// and reopens after a short debounce, forever, until closed.
//
// Listeners observe the lifecycle (session opened, state changed,
// control flags changed) and are where registration policy lives: the
// provided control enablers re-issue RegisterToControl on every fresh
// ConnectedMonitor, so a tool keeps its control grant across backend
// restarts without orchestrating reconnects itself.
//
// Event queues created on the API survive reconnects: they hang off a
// producer shared by every session the runner opens.
package api
