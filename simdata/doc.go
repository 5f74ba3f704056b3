// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package simdata models the simulator-state blob the backend shares
// with every client: the sim in use, the vehicles, tracks, tires,
// participants, and sessions the simulator has described.
//
// A SimData is an immutable parsed snapshot over the raw BSON. Section
// properties are read lazily by name with two-value lookups; the set of
// properties grows with simulators, so absence is an ordinary result,
// not an error. Known property names are exported as constants.
package simdata
