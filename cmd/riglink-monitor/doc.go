// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// riglink-monitor attaches to the backend in monitor mode and prints
// session lifecycle transitions, the device inventory, and definition
// counts as they change. It is the quickest way to check that a backend
// is up and publishing.
package main
