// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec wraps the BSON machinery the riglink wire formats are
// built on. Commands on the reliable stream and the bulk shared-memory
// blobs (device info, sim data) are BSON documents; this package is the
// single place that imports the mongo-driver BSON packages, so consumers
// depend only on lib/codec.
//
// The structural validator enforces the limits the protocol promises the
// backend honors: bounded nesting depth, internally consistent length
// prefixes, and NUL termination on every document. Documents that fail
// validation never reach the parsers.
package codec
